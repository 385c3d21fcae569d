// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"storefront_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quotation Domain Events
// =============================================================================

// QuotationCreated is published when a new quotation request is stored.
type QuotationCreated struct {
	BaseEvent
	QuotationID    uuid.UUID `json:"quotationId"`
	RequesterName  string    `json:"requesterName"`
	RequesterEmail string    `json:"requesterEmail"`
	ItemCount      int       `json:"itemCount"`
	TotalCents     int64     `json:"totalCents"`
	Source         string    `json:"source,omitempty"`
}

func (e QuotationCreated) EventName() string { return "quotation.created" }

// QuotationSent is published when an operator prices a quotation and releases
// it to the buyer with a freshly minted slug.
type QuotationSent struct {
	BaseEvent
	QuotationID    uuid.UUID `json:"quotationId"`
	RequesterName  string    `json:"requesterName"`
	RequesterEmail string    `json:"requesterEmail"`
	Slug           string    `json:"slug"`
	TotalCents     int64     `json:"totalCents"`
	DiscountCents  int64     `json:"discountCents"`
	ShippingCents  int64     `json:"shippingCents"`
	FinalCents     int64     `json:"finalCents"`
}

func (e QuotationSent) EventName() string { return "quotation.sent" }

// QuotationClosedLost is published when an operator marks a quotation as lost.
type QuotationClosedLost struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
}

func (e QuotationClosedLost) EventName() string { return "quotation.closed_lost" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentCaptured is published after a successful processor capture has been
// materialized as an order. Exactly one such event exists per quotation.
type PaymentCaptured struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	OrderID     uuid.UUID `json:"orderId"`
	CaptureID   string    `json:"captureId"`
	BuyerName   string    `json:"buyerName"`
	BuyerEmail  string    `json:"buyerEmail"`
	TotalCents  int64     `json:"totalCents"`
	ItemCount   int       `json:"itemCount"`
}

func (e PaymentCaptured) EventName() string { return "payment.captured" }

// DirectPaymentLinkCreated is published when an ad hoc payment link is issued.
type DirectPaymentLinkCreated struct {
	BaseEvent
	QuotationID   uuid.UUID `json:"quotationId"`
	BuyerEmail    string    `json:"buyerEmail"`
	PayLink       string    `json:"payLink"`
	MessagingLink string    `json:"messagingLink"`
	FinalCents    int64     `json:"finalCents"`
}

func (e DirectPaymentLinkCreated) EventName() string { return "payment.direct_link_created" }

// =============================================================================
// Order Domain Events
// =============================================================================

// OrderSold is published when an operator marks an order as sold.
type OrderSold struct {
	BaseEvent
	OrderID    uuid.UUID `json:"orderId"`
	BuyerEmail string    `json:"buyerEmail"`
	BuyerName  string    `json:"buyerName"`
	TotalCents int64     `json:"totalCents"`
}

func (e OrderSold) EventName() string { return "orders.sold" }
