package service

import (
	"context"
	"testing"
	"time"

	"storefront_backend/internal/events"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	byID        map[uuid.UUID]*repository.Quotation
	bySlug      map[string]*repository.Quotation
	items       map[uuid.UUID][]repository.QuotationItem
	codes       map[string]*repository.DiscountCode
	created     []*repository.Quotation
	markSent    []repository.MarkSentParams
	markSentOK  bool
	markSentErr error
}

func (f *fakeStore) CreateWithItems(_ context.Context, q *repository.Quotation, items []repository.QuotationItem) error {
	f.created = append(f.created, q)
	if f.items == nil {
		f.items = map[uuid.UUID][]repository.QuotationItem{}
	}
	f.items[q.ID] = items
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Quotation, error) {
	q, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("quotation not found")
	}
	return q, nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*repository.Quotation, error) {
	q, ok := f.bySlug[slug]
	if !ok {
		return nil, apperr.NotFound("quotation not found")
	}
	return q, nil
}

func (f *fakeStore) GetItems(_ context.Context, id uuid.UUID) ([]repository.QuotationItem, error) {
	return f.items[id], nil
}

func (f *fakeStore) MarkSent(_ context.Context, p repository.MarkSentParams) (bool, error) {
	f.markSent = append(f.markSent, p)
	if f.markSentErr != nil {
		return false, f.markSentErr
	}
	if !f.markSentOK {
		return false, nil
	}
	q := f.byID[p.ID]
	q.Status = string(transport.StatusSentToClient)
	q.DiscountType = p.DiscountType
	q.DiscountValue = p.DiscountValue
	q.FinalCents = p.FinalCents
	q.ShippingCents = p.ShippingCents
	q.Slug = &p.Slug
	q.RespondedAt = &p.RespondedAt
	return true, nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	q, ok := f.byID[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	return true, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	return &repository.ListResult{Page: params.Page, PageSize: params.PageSize}, nil
}

func (f *fakeStore) GetDiscountCode(_ context.Context, code string) (*repository.DiscountCode, error) {
	dc, ok := f.codes[code]
	if !ok {
		return nil, apperr.NotFound("discount code not found")
	}
	return dc, nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *capturingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *capturingBus) Subscribe(string, events.Handler) {}

func receivedQuotation() (*repository.Quotation, []repository.QuotationItem) {
	id := uuid.New()
	q := &repository.Quotation{
		ID:            id,
		Status:        string(transport.StatusReceived),
		RequesterName: "Jane Requester",
		Email:         "jane@example.com",
		TotalCents:    10000,
		CreatedAt:     time.Now(),
	}
	items := []repository.QuotationItem{
		{ID: uuid.New(), QuotationID: id, ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 5000, SnapshotName: "Widget", SnapshotPriceCents: 5000},
	}
	return q, items
}

func newPricingService(store *fakeStore) (*Service, *capturingBus) {
	svc := New(store)
	bus := &capturingBus{}
	svc.SetEventBus(bus)
	return svc, bus
}

func TestPriceAndSendRejectsSpecAndCode(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{byID: map[uuid.UUID]*repository.Quotation{q.ID: q}, items: map[uuid.UUID][]repository.QuotationItem{q.ID: items}}
	svc, _ := newPricingService(store)

	dt := transport.DiscountPercentage
	_, err := svc.PriceAndSend(context.Background(), q.ID, transport.PriceAndSendRequest{
		DiscountType: &dt,
		DiscountCode: "SAVE10",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
	if len(store.markSent) != 0 {
		t.Errorf("MarkSent called %d times, want 0", len(store.markSent))
	}
}

func TestPriceAndSendMintsSlugAndApplies(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{
		byID:       map[uuid.UUID]*repository.Quotation{q.ID: q},
		items:      map[uuid.UUID][]repository.QuotationItem{q.ID: items},
		markSentOK: true,
	}
	svc, bus := newPricingService(store)

	dt := transport.DiscountPercentage
	resp, err := svc.PriceAndSend(context.Background(), q.ID, transport.PriceAndSendRequest{
		DiscountType:  &dt,
		DiscountValue: 10,
		ShippingCents: 700,
	})
	if err != nil {
		t.Fatalf("PriceAndSend: %v", err)
	}

	if len(store.markSent) != 1 {
		t.Fatalf("MarkSent called %d times, want 1", len(store.markSent))
	}
	p := store.markSent[0]
	if len(p.Slug) != 64 {
		t.Errorf("slug = %q, want 64 hex chars", p.Slug)
	}
	// $100 base, 10% off, $7 shipping.
	if p.FinalCents != 9700 {
		t.Errorf("FinalCents = %d, want 9700", p.FinalCents)
	}
	if resp.Status != transport.StatusSentToClient {
		t.Errorf("status = %q, want sent_to_client", resp.Status)
	}

	if len(bus.published) != 1 || bus.published[0].EventName() != "quotation.sent" {
		t.Fatalf("published = %v, want one quotation.sent", bus.published)
	}
	sent := bus.published[0].(events.QuotationSent)
	if sent.FinalCents != 9700 || sent.DiscountCents != 1000 {
		t.Errorf("event = %+v, want final 9700 discount 1000", sent)
	}
}

func TestPriceAndSendAlreadySentConflicts(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{
		byID:  map[uuid.UUID]*repository.Quotation{q.ID: q},
		items: map[uuid.UUID][]repository.QuotationItem{q.ID: items},
	}
	svc, bus := newPricingService(store)

	_, err := svc.PriceAndSend(context.Background(), q.ID, transport.PriceAndSendRequest{})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events on a conflicted send, want 0", len(bus.published))
	}
}

func TestPriceAndSendPassesCodeToTransition(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{
		byID:  map[uuid.UUID]*repository.Quotation{q.ID: q},
		items: map[uuid.UUID][]repository.QuotationItem{q.ID: items},
		codes: map[string]*repository.DiscountCode{
			"SAVE10": {Code: "SAVE10", DiscountType: "percentage", Value: 10, Active: true},
		},
		markSentOK: true,
	}
	svc, _ := newPricingService(store)

	_, err := svc.PriceAndSend(context.Background(), q.ID, transport.PriceAndSendRequest{DiscountCode: "SAVE10"})
	if err != nil {
		t.Fatalf("PriceAndSend: %v", err)
	}
	if len(store.markSent) != 1 || store.markSent[0].DiscountCode != "SAVE10" {
		t.Fatalf("MarkSent params = %+v, want the code carried into the transition", store.markSent)
	}
	if store.markSent[0].FinalCents != 9000 {
		t.Errorf("FinalCents = %d, want 9000", store.markSent[0].FinalCents)
	}
}

func TestPriceAndSendCodeLimitFailsWholeSend(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{
		byID:  map[uuid.UUID]*repository.Quotation{q.ID: q},
		items: map[uuid.UUID][]repository.QuotationItem{q.ID: items},
		codes: map[string]*repository.DiscountCode{
			"SAVE10": {Code: "SAVE10", DiscountType: "percentage", Value: 10, Active: true, UsageLimit: 5, UsageCount: 4},
		},
		markSentErr: apperr.Validation("discount code usage limit reached"),
	}
	svc, bus := newPricingService(store)

	_, err := svc.PriceAndSend(context.Background(), q.ID, transport.PriceAndSendRequest{DiscountCode: "SAVE10"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
	if q.Status != string(transport.StatusReceived) {
		t.Errorf("status = %q, want the quotation left unsent", q.Status)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events on a failed redemption, want 0", len(bus.published))
	}
}

func TestUpdateStatusClosedLost(t *testing.T) {
	q, items := receivedQuotation()
	store := &fakeStore{
		byID:  map[uuid.UUID]*repository.Quotation{q.ID: q},
		items: map[uuid.UUID][]repository.QuotationItem{q.ID: items},
	}
	svc, bus := newPricingService(store)

	resp, err := svc.UpdateStatus(context.Background(), q.ID, transport.StatusClosedLost)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if resp.Status != transport.StatusClosedLost {
		t.Errorf("status = %q, want closed_lost", resp.Status)
	}
	if len(bus.published) != 1 || bus.published[0].EventName() != "quotation.closed_lost" {
		t.Fatalf("published = %v, want one quotation.closed_lost", bus.published)
	}

	_, err = svc.UpdateStatus(context.Background(), q.ID, transport.StatusClosedLost)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("second close got %v, want conflict", err)
	}
}
