package service

import (
	"context"

	"storefront_backend/internal/events"
	"storefront_backend/internal/orders/repository"
	"storefront_backend/internal/orders/transport"
	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
)

// allowedTransitions holds every operator-reachable status move. Orders are
// born paid by the capture flow; pending exists for manually entered orders.
var allowedTransitions = map[transport.OrderStatus][]transport.OrderStatus{
	transport.StatusPending: {transport.StatusPaid, transport.StatusCancelled},
	transport.StatusPaid:    {transport.StatusSold, transport.StatusCancelled},
}

// Service provides business logic for orders.
type Service struct {
	repo *repository.Repository
	bus  events.Bus
}

// New creates a new orders service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// SetEventBus injects the event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// GetByID retrieves an order with its line items.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.OrderResponse, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(o, items), nil
}

// List retrieves orders with filtering and pagination.
func (s *Service) List(ctx context.Context, req transport.ListOrdersRequest) (*transport.OrderListResponse, error) {
	params := repository.ListParams{
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		params.Status = &req.Status
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.OrderResponse, len(result.Items))
	for i, o := range result.Items {
		oItems, _ := s.repo.GetItems(ctx, o.ID)
		items[i] = *buildResponse(&o, oItems)
	}

	return &transport.OrderListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// UpdateStatus applies an operator transition. Moving an order to sold fires
// the sale confirmations.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status transport.OrderStatus) (*transport.OrderResponse, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(transport.OrderStatus(o.Status), status) {
		return nil, apperr.Conflict("order cannot move from " + o.Status + " to " + string(status))
	}

	moved, err := s.repo.TransitionStatus(ctx, id, o.Status, string(status))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.Conflict("order changed state concurrently")
	}

	if status == transport.StatusSold && s.bus != nil {
		s.bus.Publish(ctx, events.OrderSold{
			BaseEvent:  events.NewBaseEvent(),
			OrderID:    o.ID,
			BuyerEmail: o.BuyerEmail,
			BuyerName:  o.BuyerName,
			TotalCents: o.TotalCents,
		})
	}

	return s.GetByID(ctx, id)
}

func transitionAllowed(from, to transport.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func buildResponse(o *repository.Order, items []repository.OrderItem) *transport.OrderResponse {
	respItems := make([]transport.OrderItemResponse, len(items))
	for i, it := range items {
		respItems[i] = transport.OrderItemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			Name:           it.Name,
			SKU:            it.SKU,
			ImageURL:       it.ImageURL,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		}
	}

	var shipping *transport.ShippingAddressResponse
	if !o.Shipping.Empty() {
		shipping = &transport.ShippingAddressResponse{
			Name:       o.Shipping.Name,
			Line1:      o.Shipping.Line1,
			Line2:      o.Shipping.Line2,
			City:       o.Shipping.City,
			Region:     o.Shipping.Region,
			PostalCode: o.Shipping.PostalCode,
			Country:    o.Shipping.Country,
		}
	}

	return &transport.OrderResponse{
		ID:               o.ID,
		QuotationID:      o.QuotationID,
		Status:           transport.OrderStatus(o.Status),
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentReference: o.PaymentReference,
		BuyerName:        o.BuyerName,
		BuyerEmail:       o.BuyerEmail,
		ShippingAddress:  shipping,
		TotalCents:       o.TotalCents,
		ShippingCents:    o.ShippingCents,
		DiscountCents:    o.DiscountCents,
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		Items:            respItems,
	}
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 50
	}
	return size
}
