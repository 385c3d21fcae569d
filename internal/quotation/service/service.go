package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"storefront_backend/internal/events"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
)

// Store is the persistence surface the quotation service needs.
type Store interface {
	CreateWithItems(ctx context.Context, q *repository.Quotation, items []repository.QuotationItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quotation, error)
	GetBySlug(ctx context.Context, slug string) (*repository.Quotation, error)
	GetItems(ctx context.Context, quotationID uuid.UUID) ([]repository.QuotationItem, error)
	MarkSent(ctx context.Context, p repository.MarkSentParams) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	GetDiscountCode(ctx context.Context, code string) (*repository.DiscountCode, error)
}

// Service provides business logic for quotations.
type Service struct {
	repo Store
	bus  events.Bus // optional — nil means no event publication
}

// New creates a new quotation service.
func New(repo Store) *Service {
	return &Service{repo: repo}
}

// SetEventBus injects the event bus (set after construction to break circular deps).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// Create stores a new quotation with line items, computing the pre-discount
// total server-side. The write is a single transaction: callers never observe
// a quotation without its items.
func (s *Service) Create(ctx context.Context, req transport.CreateQuotationRequest) (*transport.QuotationResponse, error) {
	now := time.Now()
	q := repository.Quotation{
		ID:            uuid.New(),
		Status:        string(transport.StatusReceived),
		RequesterName: req.Requester.Name,
		RequesterOrg:  req.Requester.Organization,
		Email:         req.Requester.Email,
		Phone:         req.Requester.Phone,
		Notes:         req.Notes,
		Source:        req.Source,
		Locale:        req.Locale,
		Channel:       req.Channel,
		CreatedAt:     now,
	}

	items := make([]repository.QuotationItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = repository.QuotationItem{
			ID:                 uuid.New(),
			QuotationID:        q.ID,
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPriceCents:     it.Snapshot.UnitPriceCents,
			SnapshotName:       it.Snapshot.Name,
			SnapshotSKU:        it.Snapshot.SKU,
			SnapshotImageURL:   it.Snapshot.ImageURL,
			SnapshotPriceCents: it.Snapshot.UnitPriceCents,
			CreatedAt:          now,
		}
		q.TotalCents += it.Snapshot.UnitPriceCents * int64(it.Quantity)
	}

	if err := s.repo.CreateWithItems(ctx, &q, items); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.QuotationCreated{
			BaseEvent:      events.NewBaseEvent(),
			QuotationID:    q.ID,
			RequesterName:  q.RequesterName,
			RequesterEmail: q.Email,
			ItemCount:      len(items),
			TotalCents:     q.TotalCents,
			Source:         q.Source,
		})
	}

	return s.buildResponse(&q, items), nil
}

// PriceAndSend runs the discount engine, mints the public slug, and releases
// the quotation to the buyer. The slug is minted exactly once: the underlying
// update only fires while the quotation is still received or priced.
func (s *Service) PriceAndSend(ctx context.Context, id uuid.UUID, req transport.PriceAndSendRequest) (*transport.QuotationResponse, error) {
	if req.DiscountCode != "" && req.DiscountType != nil {
		return nil, apperr.Validation("provide either a discount spec or a discount code, not both")
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}

	spec, err := s.resolveSpec(ctx, req, q.TotalCents, items)
	if err != nil {
		return nil, err
	}

	var discountType *string
	var itemDiscounts []repository.ItemDiscount
	finalCents := q.TotalCents + req.ShippingCents
	var discountValue int64

	if spec != nil {
		dctx := DiscountContext{ShippingCents: req.ShippingCents, Lines: discountLines(items, req.ItemDiscounts)}
		res, err := ApplyDiscount(q.TotalCents, *spec, dctx)
		if err != nil {
			return nil, err
		}
		finalCents = res.FinalCents
		discountValue = spec.Value
		t := string(spec.Type)
		discountType = &t
		for _, a := range res.ItemDiscounts {
			itemDiscounts = append(itemDiscounts, repository.ItemDiscount{ItemID: a.ItemID, Percent: a.Percent, Cents: a.Cents})
		}
	}

	slug, err := generateSlug()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	moved, err := s.repo.MarkSent(ctx, repository.MarkSentParams{
		ID:            id,
		DiscountType:  discountType,
		DiscountValue: discountValue,
		FinalCents:    finalCents,
		ShippingCents: req.ShippingCents,
		Slug:          slug,
		ManagerNotes:  req.ManagerNotes,
		RespondedAt:   now,
		ItemDiscounts: itemDiscounts,
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.Conflict("quotation has already been sent or closed")
	}

	q, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err = s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.QuotationSent{
			BaseEvent:      events.NewBaseEvent(),
			QuotationID:    q.ID,
			RequesterName:  q.RequesterName,
			RequesterEmail: q.Email,
			Slug:           slug,
			TotalCents:     q.TotalCents,
			DiscountCents:  q.TotalCents + q.ShippingCents - q.FinalCents,
			ShippingCents:  q.ShippingCents,
			FinalCents:     q.FinalCents,
		})
	}

	return s.buildResponse(q, items), nil
}

// resolveSpec turns the request into a concrete discount spec, resolving and
// validating a stored code when one is given. Nil means no discount.
func (s *Service) resolveSpec(ctx context.Context, req transport.PriceAndSendRequest, totalCents int64, items []repository.QuotationItem) (*DiscountSpec, error) {
	if req.DiscountCode != "" {
		code, err := s.repo.GetDiscountCode(ctx, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		if err := ValidateDiscountCode(code, totalCents, itemCategories(items), false, time.Now()); err != nil {
			return nil, err
		}
		return &DiscountSpec{
			Type:             transport.DiscountType(code.DiscountType),
			Value:            code.Value,
			MaxDiscountCents: code.MaxDiscountCents,
		}, nil
	}
	if req.DiscountType == nil {
		return nil, nil
	}
	return &DiscountSpec{
		Type:             *req.DiscountType,
		Value:            req.DiscountValue,
		MaxDiscountCents: req.MaxDiscountCents,
	}, nil
}

// UpdateStatus applies an operator transition. Only closed_lost is reachable
// here; won/sent states are owned by the payment and pricing flows.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status transport.QuotationStatus) (*transport.QuotationResponse, error) {
	if status != transport.StatusClosedLost {
		return nil, apperr.Validation("only closed_lost can be set directly")
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status == string(transport.StatusClosedWon) || q.Status == string(transport.StatusClosedLost) {
		return nil, apperr.Conflict("quotation is already closed")
	}

	moved, err := s.repo.TransitionStatus(ctx, id, q.Status, string(transport.StatusClosedLost))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, apperr.Conflict("quotation changed state concurrently")
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.QuotationClosedLost{BaseEvent: events.NewBaseEvent(), QuotationID: id})
	}

	return s.GetByID(ctx, id)
}

// GetByID retrieves a quotation with its line items.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.QuotationResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(q, items), nil
}

// List retrieves quotations with filtering and pagination.
func (s *Service) List(ctx context.Context, req transport.ListQuotationsRequest) (*transport.QuotationListResponse, error) {
	params := repository.ListParams{
		Status:   nilIfEmpty(req.Status),
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuotationResponse, len(result.Items))
	for i, q := range result.Items {
		qItems, _ := s.repo.GetItems(ctx, q.ID)
		items[i] = *s.buildResponse(&q, qItems)
	}

	return &transport.QuotationListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// buildResponse converts a repository Quotation + items into a transport response.
func (s *Service) buildResponse(q *repository.Quotation, items []repository.QuotationItem) *transport.QuotationResponse {
	respItems := make([]transport.QuotationItemResponse, len(items))
	for i, it := range items {
		respItems[i] = itemResponse(it)
	}

	var discountType *transport.DiscountType
	if q.DiscountType != nil {
		t := transport.DiscountType(*q.DiscountType)
		discountType = &t
	}

	return &transport.QuotationResponse{
		ID:     q.ID,
		Status: transport.QuotationStatus(q.Status),
		Requester: transport.Requester{
			Name:         q.RequesterName,
			Organization: q.RequesterOrg,
			Email:        q.Email,
			Phone:        q.Phone,
		},
		Notes:         q.Notes,
		Source:        q.Source,
		Locale:        q.Locale,
		Channel:       q.Channel,
		DiscountType:  discountType,
		DiscountValue: q.DiscountValue,
		TotalCents:    q.TotalCents,
		FinalCents:    q.FinalCents,
		ShippingCents: q.ShippingCents,
		Slug:          ptrToString(q.Slug),
		ManagerNotes:  q.ManagerNotes,
		AdminNotes:    q.AdminNotes,
		RespondedAt:   q.RespondedAt,
		CreatedAt:     q.CreatedAt,
		Items:         respItems,
	}
}

func itemResponse(it repository.QuotationItem) transport.QuotationItemResponse {
	return transport.QuotationItemResponse{
		ID:                 it.ID,
		ProductID:          it.ProductID,
		Quantity:           it.Quantity,
		UnitPriceCents:     it.UnitPriceCents,
		DiscountPercentage: it.DiscountPercentage,
		DiscountCents:      it.DiscountCents,
		LineTotalCents:     discountedLineCents(it),
		Snapshot: transport.ProductSnapshot{
			Name:           it.SnapshotName,
			SKU:            it.SnapshotSKU,
			ImageURL:       it.SnapshotImageURL,
			UnitPriceCents: it.SnapshotPriceCents,
		},
	}
}

// discountedLineCents is the line total after any per-item annotation.
func discountedLineCents(it repository.QuotationItem) int64 {
	line := it.UnitPriceCents * int64(it.Quantity)
	if it.DiscountPercentage != nil {
		return line * (100 - *it.DiscountPercentage) / 100
	}
	if it.DiscountCents != nil {
		if *it.DiscountCents > line {
			return 0
		}
		return line - *it.DiscountCents
	}
	return line
}

func discountLines(items []repository.QuotationItem, overrides []transport.ItemDiscountRequest) []DiscountLine {
	byItem := make(map[uuid.UUID]int64, len(overrides))
	for _, o := range overrides {
		byItem[o.ItemID] = o.Percent
	}
	lines := make([]DiscountLine, len(items))
	for i, it := range items {
		lines[i] = DiscountLine{
			ItemID:    it.ID,
			LineCents: it.UnitPriceCents * int64(it.Quantity),
		}
		if p, ok := byItem[it.ID]; ok {
			percent := p
			lines[i].OverridePercent = &percent
		}
	}
	return lines
}

func itemCategories(items []repository.QuotationItem) []string {
	categories := make([]string, 0, len(items))
	for _, it := range items {
		if it.SnapshotSKU != "" {
			categories = append(categories, it.SnapshotSKU)
		}
	}
	return categories
}

// generateSlug mints the unguessable capability token granting public access
// to one quotation. It is never derived from the numeric id.
func generateSlug() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 50
	}
	return size
}
