// Package transport defines the request/response DTOs for the orders module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	// StatusPending is reserved for orders awaiting payment confirmation.
	StatusPending OrderStatus = "pending"
	// StatusPaid means the capture settled and fulfillment can start.
	StatusPaid OrderStatus = "paid"
	// StatusSold means fulfillment finished; confirmations go out on this transition.
	StatusSold OrderStatus = "sold"
	// StatusCancelled means the order was abandoned after payment review.
	StatusCancelled OrderStatus = "cancelled"
)

// UpdateOrderStatusRequest applies an operator status transition.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=paid sold cancelled"`
}

// ListOrdersRequest filters the operator order listing.
type ListOrdersRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// OrderItemResponse is one line item on an order.
type OrderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

// ShippingAddressResponse is the delivery address recorded at capture time.
type ShippingAddressResponse struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// OrderResponse is the operator-facing view of an order.
type OrderResponse struct {
	ID               uuid.UUID                `json:"id"`
	QuotationID      uuid.UUID                `json:"quotationId"`
	Status           OrderStatus              `json:"status"`
	PaymentMethod    string                   `json:"paymentMethod,omitempty"`
	PaymentStatus    string                   `json:"paymentStatus,omitempty"`
	PaymentReference string                   `json:"paymentReference"`
	BuyerName        string                   `json:"buyerName"`
	BuyerEmail       string                   `json:"buyerEmail"`
	ShippingAddress  *ShippingAddressResponse `json:"shippingAddress,omitempty"`
	TotalCents       int64                    `json:"totalCents"`
	ShippingCents    int64                    `json:"shippingCents"`
	DiscountCents    int64                    `json:"discountCents"`
	Notes            string                   `json:"notes,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	Items            []OrderItemResponse      `json:"items"`
}

// OrderListResponse is a paginated operator listing.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}
