package email

const (
	subjectQuotationReceived = "We received your quotation request"
	subjectQuotationSent     = "Your quotation is ready"
	subjectPaymentConfirmed  = "Payment confirmed"
	subjectOrderSold         = "Your order is on its way"
)
