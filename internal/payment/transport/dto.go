// Package transport defines the request/response DTOs for the payment module.
package transport

import (
	qtransport "storefront_backend/internal/quotation/transport"

	"github.com/google/uuid"
)

// CreateProcessorOrderResponse hands the buyer the processor checkout handle.
type CreateProcessorOrderResponse struct {
	ProcessorOrderID string `json:"processorOrderId"`
	ApproveURL       string `json:"approveUrl,omitempty"`
}

// ShippingAddress is the structured delivery address handed over with a
// capture. Absent means no physical delivery.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country" validate:"required"`
}

// CaptureRequest asks the backend to capture an approved processor order.
type CaptureRequest struct {
	ProcessorOrderID string           `json:"processorOrderId" validate:"required"`
	Shipping         *ShippingAddress `json:"shipping"`
}

// CaptureResponse reports the materialized order after a successful capture.
type CaptureResponse struct {
	OrderID   uuid.UUID `json:"orderId"`
	CaptureID string    `json:"captureId"`
	Status    string    `json:"status"`
}

// DirectPaymentLinkItem is one cart line on an ad hoc payment request. Lines
// have no catalog reference; what is written here is the snapshot.
type DirectPaymentLinkItem struct {
	Name           string `json:"name" validate:"required"`
	SKU            string `json:"sku"`
	ImageURL       string `json:"imageUrl"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gt=0"`
}

// DirectPaymentLinkRequest creates an ad hoc payment link without a prior
// quotation flow: a cart, the buyer, and optional discount and shipping.
// Item-scoped discount types don't apply here because the cart lines have no
// identity before they are written.
type DirectPaymentLinkRequest struct {
	BuyerName     string                   `json:"buyerName" validate:"required"`
	BuyerEmail    string                   `json:"buyerEmail" validate:"required,email"`
	BuyerPhone    string                   `json:"buyerPhone"`
	Items         []DirectPaymentLinkItem  `json:"items" validate:"required,min=1,max=200,dive"`
	DiscountType  *qtransport.DiscountType `json:"discountType" validate:"omitempty,oneof=percentage fixed_amount total_override"`
	DiscountValue int64                    `json:"discountValue" validate:"gte=0"`
	ShippingCents int64                    `json:"shippingCents" validate:"gte=0"`
	Source        string                   `json:"source"`
}

// DirectPaymentLinkResponse carries everything needed to hand the link to the
// buyer: the URL itself, a WhatsApp share link, and a QR code PNG (base64).
// AmountCents is the final amount due after discount and shipping.
type DirectPaymentLinkResponse struct {
	QuotationID   uuid.UUID `json:"quotationId"`
	Slug          string    `json:"slug"`
	PayLink       string    `json:"payLink"`
	MessagingLink string    `json:"messagingLink,omitempty"`
	QRCodePNG     string    `json:"qrCodePng,omitempty"`
	TotalCents    int64     `json:"totalCents"`
	DiscountCents int64     `json:"discountCents"`
	ShippingCents int64     `json:"shippingCents"`
	AmountCents   int64     `json:"amountCents"`
}
