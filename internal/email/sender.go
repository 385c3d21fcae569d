// Package email delivers transactional mail for the quotation and order
// flows. Callers treat delivery as best effort; failures are logged by the
// notification layer, never propagated to the request path.
package email

import "context"

// Sender is the outbound email surface consumed by the notification module.
type Sender interface {
	SendQuotationReceivedEmail(ctx context.Context, toEmail, requesterName string, itemCount int, totalCents int64) error
	SendQuotationSentEmail(ctx context.Context, toEmail, requesterName, payLink string, totalCents, discountCents, shippingCents, finalCents int64) error
	SendPaymentConfirmedEmail(ctx context.Context, toEmail, buyerName, reference string, totalCents int64) error
	SendOrderSoldEmail(ctx context.Context, toEmail, buyerName string, totalCents int64) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender satisfies Sender without sending anything. Used when email is
// disabled in config.
type NoopSender struct{}

func (NoopSender) SendQuotationReceivedEmail(context.Context, string, string, int, int64) error {
	return nil
}

func (NoopSender) SendQuotationSentEmail(context.Context, string, string, string, int64, int64, int64, int64) error {
	return nil
}

func (NoopSender) SendPaymentConfirmedEmail(context.Context, string, string, string, int64) error {
	return nil
}

func (NoopSender) SendOrderSoldEmail(context.Context, string, string, int64) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error {
	return nil
}

var _ Sender = NoopSender{}
