// Package transport defines the request/response DTOs for the quotation module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// QuotationStatus is the lifecycle state of a quotation.
type QuotationStatus string

const (
	// StatusReceived is the initial state of every quotation request.
	StatusReceived QuotationStatus = "received"
	// StatusPriced means an operator has worked on pricing but not released it.
	StatusPriced QuotationStatus = "priced"
	// StatusSentToClient means the buyer holds a live payment link.
	StatusSentToClient QuotationStatus = "sent_to_client"
	// StatusClosedWon means a capture succeeded and an order exists.
	StatusClosedWon QuotationStatus = "closed_won"
	// StatusClosedLost means the operator abandoned the quotation.
	StatusClosedLost QuotationStatus = "closed_lost"
)

// DiscountType identifies how a discount value is interpreted.
type DiscountType string

const (
	// DiscountPercentage applies value as a whole percentage of the base amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixedAmount subtracts value (cents) from the base amount.
	DiscountFixedAmount DiscountType = "fixed_amount"
	// DiscountTotalOverride replaces the final amount with value (cents) verbatim.
	DiscountTotalOverride DiscountType = "total_override"
	// DiscountProductPercentage applies a percentage per line item.
	DiscountProductPercentage DiscountType = "product_percentage"
	// DiscountProductFixed subtracts a fixed amount (cents) per line item.
	DiscountProductFixed DiscountType = "product_fixed"
)

// ProductSnapshot is the fixed-shape copy of catalog display fields captured
// at quotation time. Later catalog edits never alter a sent quotation.
type ProductSnapshot struct {
	Name           string `json:"name" validate:"required"`
	SKU            string `json:"sku"`
	ImageURL       string `json:"imageUrl"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gte=0"`
}

// Requester identifies who asked for the quotation.
type Requester struct {
	Name         string `json:"name" validate:"required"`
	Organization string `json:"organization"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
}

// QuotationItemRequest is one catalog item plus quantity in a create request.
type QuotationItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Snapshot  ProductSnapshot `json:"snapshot" validate:"required"`
}

// CreateQuotationRequest is the payload for creating a quotation.
type CreateQuotationRequest struct {
	Requester Requester              `json:"requester" validate:"required"`
	Notes     string                 `json:"notes"`
	Source    string                 `json:"source"`
	Locale    string                 `json:"locale"`
	Channel   string                 `json:"channel"`
	Items     []QuotationItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
}

// ItemDiscountRequest carries a per-item override for item-scoped discounts.
type ItemDiscountRequest struct {
	ItemID  uuid.UUID `json:"itemId" validate:"required"`
	Percent int64     `json:"percent" validate:"gte=0,lte=100"`
}

// PriceAndSendRequest is the operator payload for pricing and releasing a
// quotation. Either a discount spec, a discount code, or neither is given;
// combining both is rejected.
type PriceAndSendRequest struct {
	DiscountType     *DiscountType         `json:"discountType" validate:"omitempty,oneof=percentage fixed_amount total_override product_percentage product_fixed"`
	DiscountValue    int64                 `json:"discountValue" validate:"gte=0"`
	MaxDiscountCents int64                 `json:"maxDiscountCents" validate:"gte=0"`
	DiscountCode     string                `json:"discountCode"`
	ItemDiscounts    []ItemDiscountRequest `json:"itemDiscounts" validate:"omitempty,dive"`
	ShippingCents    int64                 `json:"shippingCents" validate:"gte=0"`
	ManagerNotes     string                `json:"managerNotes"`
}

// UpdateStatusRequest applies an operator status transition.
type UpdateStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required,oneof=closed_lost"`
}

// ListQuotationsRequest filters the operator listing.
type ListQuotationsRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// QuotationItemResponse is one line item in a quotation response.
type QuotationItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"productId"`
	Quantity           int             `json:"quantity"`
	UnitPriceCents     int64           `json:"unitPriceCents"`
	DiscountPercentage *int64          `json:"discountPercentage,omitempty"`
	DiscountCents      *int64          `json:"discountCents,omitempty"`
	LineTotalCents     int64           `json:"lineTotalCents"`
	Snapshot           ProductSnapshot `json:"snapshot"`
}

// QuotationResponse is the operator-facing view of a quotation.
type QuotationResponse struct {
	ID            uuid.UUID               `json:"id"`
	Status        QuotationStatus         `json:"status"`
	Requester     Requester               `json:"requester"`
	Notes         string                  `json:"notes,omitempty"`
	Source        string                  `json:"source,omitempty"`
	Locale        string                  `json:"locale,omitempty"`
	Channel       string                  `json:"channel,omitempty"`
	DiscountType  *DiscountType           `json:"discountType,omitempty"`
	DiscountValue int64                   `json:"discountValue"`
	TotalCents    int64                   `json:"totalCents"`
	FinalCents    int64                   `json:"finalCents"`
	ShippingCents int64                   `json:"shippingCents"`
	Slug          string                  `json:"slug,omitempty"`
	ManagerNotes  string                  `json:"managerNotes,omitempty"`
	AdminNotes    string                  `json:"adminNotes,omitempty"`
	RespondedAt   *time.Time              `json:"respondedAt,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	Items         []QuotationItemResponse `json:"items"`
}

// QuotationListResponse is a paginated operator listing.
type QuotationListResponse struct {
	Items      []QuotationResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// PublicQuotationResponse is the buyer-facing view addressed by slug.
// It exposes no requester contact data beyond the name and no internal notes.
type PublicQuotationResponse struct {
	Slug          string                  `json:"slug"`
	Status        QuotationStatus         `json:"status"`
	RequesterName string                  `json:"requesterName"`
	DiscountType  *DiscountType           `json:"discountType,omitempty"`
	TotalCents    int64                   `json:"totalCents"`
	DiscountCents int64                   `json:"discountCents"`
	ShippingCents int64                   `json:"shippingCents"`
	FinalCents    int64                   `json:"finalCents"`
	Payable       bool                    `json:"payable"`
	Items         []QuotationItemResponse `json:"items"`
	CreatedAt     time.Time               `json:"createdAt"`
}
