package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront_backend/internal/events"
	"storefront_backend/internal/payment/processor"
	"storefront_backend/internal/payment/repository"
	"storefront_backend/internal/payment/transport"
	qrepo "storefront_backend/internal/quotation/repository"
	qtransport "storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeQuotationStore struct {
	bySlug  map[string]*qrepo.Quotation
	items   map[uuid.UUID][]qrepo.QuotationItem
	recent  *qrepo.Quotation
	created []*qrepo.Quotation
}

func (f *fakeQuotationStore) GetBySlug(_ context.Context, slug string) (*qrepo.Quotation, error) {
	q, ok := f.bySlug[slug]
	if !ok {
		return nil, apperr.NotFound("quotation not found")
	}
	return q, nil
}

func (f *fakeQuotationStore) GetItems(_ context.Context, id uuid.UUID) ([]qrepo.QuotationItem, error) {
	return f.items[id], nil
}

func (f *fakeQuotationStore) CreateWithItems(_ context.Context, q *qrepo.Quotation, items []qrepo.QuotationItem) error {
	f.created = append(f.created, q)
	if f.items == nil {
		f.items = map[uuid.UUID][]qrepo.QuotationItem{}
	}
	f.items[q.ID] = items
	return nil
}

func (f *fakeQuotationStore) FindRecentByEmailSource(_ context.Context, _, _ string, _ time.Time) (*qrepo.Quotation, error) {
	return f.recent, nil
}

type fakeCaptureStore struct {
	recorded []repository.CaptureParams
	orderID  uuid.UUID
	err      error
}

func (f *fakeCaptureStore) RecordCapture(_ context.Context, p repository.CaptureParams) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.recorded = append(f.recorded, p)
	return f.orderID, nil
}

type fakeProcessor struct {
	created      []processor.OrderRequest
	captureCalls int
	capture      *processor.Capture
	captureErr   error
}

func (f *fakeProcessor) CreateOrder(_ context.Context, req processor.OrderRequest) (*processor.CreatedOrder, error) {
	f.created = append(f.created, req)
	return &processor.CreatedOrder{ID: "PROC-1", ApproveURL: "https://processor.example/approve/PROC-1"}, nil
}

func (f *fakeProcessor) CaptureOrder(_ context.Context, _ string) (*processor.Capture, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return f.capture, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeNotifConfig struct{}

func (fakeNotifConfig) GetAppBaseURL() string    { return "https://shop.example.com" }
func (fakeNotifConfig) GetStoreName() string     { return "Acme Store" }
func (fakeNotifConfig) GetOperatorEmail() string { return "ops@example.com" }

func sentQuotation(slug string) (*qrepo.Quotation, []qrepo.QuotationItem) {
	// Two lines: $20.00 x1 and $15.00 x2 = $50.00 base. A $5.00 fixed
	// discount and $7.00 shipping make the final amount $52.00.
	id := uuid.New()
	q := &qrepo.Quotation{
		ID:            id,
		Status:        "sent_to_client",
		RequesterName: "Jane Requester",
		Email:         "jane@example.com",
		TotalCents:    5000,
		FinalCents:    5200,
		ShippingCents: 700,
		Slug:          &slug,
	}
	items := []qrepo.QuotationItem{
		{ID: uuid.New(), QuotationID: id, ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 2000, SnapshotName: "Widget", SnapshotPriceCents: 2000},
		{ID: uuid.New(), QuotationID: id, ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1500, SnapshotName: "Gadget", SnapshotPriceCents: 1500},
	}
	return q, items
}

func newTestService(store *fakeQuotationStore, captures *fakeCaptureStore, proc *fakeProcessor) (*Service, *recordingBus) {
	svc := New(store, captures, proc, nil, fakeNotifConfig{}, logger.New("development"))
	bus := &recordingBus{}
	svc.SetEventBus(bus)
	return svc, bus
}

func TestCaptureCreatesOrder(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	orderID := uuid.New()
	captures := &fakeCaptureStore{orderID: orderID}
	proc := &fakeProcessor{capture: &processor.Capture{
		CaptureID:   "CAP-42",
		Status:      processor.StatusCompleted,
		PayerName:   "Jane Buyer",
		PayerEmail:  "jane.buyer@example.com",
		AmountCents: 5200,
	}}
	svc, bus := newTestService(store, captures, proc)

	resp, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if resp.OrderID != orderID {
		t.Errorf("OrderID = %s, want %s", resp.OrderID, orderID)
	}
	if resp.CaptureID != "CAP-42" {
		t.Errorf("CaptureID = %q, want CAP-42", resp.CaptureID)
	}
	if resp.Status != "closed_won" {
		t.Errorf("Status = %q, want closed_won", resp.Status)
	}

	if len(captures.recorded) != 1 {
		t.Fatalf("recorded %d captures, want 1", len(captures.recorded))
	}
	rec := captures.recorded[0]
	if rec.PaymentReference != "CAP-42" {
		t.Errorf("PaymentReference = %q, want CAP-42", rec.PaymentReference)
	}
	if rec.TotalCents != 5200 {
		t.Errorf("TotalCents = %d, want 5200", rec.TotalCents)
	}
	if len(rec.Items) != 2 {
		t.Errorf("order items = %d, want 2", len(rec.Items))
	}
	if rec.BuyerName != "Jane Buyer" || rec.BuyerEmail != "jane.buyer@example.com" {
		t.Errorf("buyer = %q/%q, want payer identity", rec.BuyerName, rec.BuyerEmail)
	}

	if len(bus.published) != 1 || bus.published[0].EventName() != "payment.captured" {
		t.Fatalf("published = %v, want one payment.captured", bus.published)
	}
	captured := bus.published[0].(events.PaymentCaptured)
	if captured.OrderID != orderID || captured.TotalCents != 5200 || captured.ItemCount != 2 {
		t.Errorf("event = %+v, want order %s total 5200 itemCount 2", captured, orderID)
	}
}

func TestCaptureRecordsShippingAddress(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	captures := &fakeCaptureStore{orderID: uuid.New()}
	proc := &fakeProcessor{capture: &processor.Capture{CaptureID: "CAP-43", Status: processor.StatusCompleted}}
	svc, _ := newTestService(store, captures, proc)

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{
		ProcessorOrderID: "PROC-1",
		Shipping: &transport.ShippingAddress{
			Name:       "Jane Buyer",
			Line1:      "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if len(captures.recorded) != 1 {
		t.Fatalf("recorded %d captures, want 1", len(captures.recorded))
	}
	ship := captures.recorded[0].Shipping
	if ship.Line1 != "1 Main St" || ship.City != "Springfield" || ship.Country != "US" {
		t.Errorf("shipping = %+v, want the handed-over address", ship)
	}
}

func TestCaptureReplayConflicts(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	captures := &fakeCaptureStore{err: apperr.Conflict("payment capture already recorded")}
	proc := &fakeProcessor{capture: &processor.Capture{CaptureID: "CAP-42", Status: processor.StatusCompleted}}
	svc, bus := newTestService(store, captures, proc)

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events on replay, want 0", len(bus.published))
	}
}

func TestCaptureAlreadyPaidQuotation(t *testing.T) {
	q, _ := sentQuotation("slug-1")
	q.Status = "closed_won"
	store := &fakeQuotationStore{bySlug: map[string]*qrepo.Quotation{"slug-1": q}}
	proc := &fakeProcessor{}
	svc, _ := newTestService(store, &fakeCaptureStore{}, proc)

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
	if proc.captureCalls != 0 {
		t.Errorf("processor capture called %d times for a paid quotation, want 0", proc.captureCalls)
	}
}

func TestCaptureHiddenForUnsentQuotation(t *testing.T) {
	q, _ := sentQuotation("slug-1")
	q.Status = "received"
	store := &fakeQuotationStore{bySlug: map[string]*qrepo.Quotation{"slug-1": q}}
	svc, _ := newTestService(store, &fakeCaptureStore{}, &fakeProcessor{})

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestCapturePersistenceFailureAfterCapture(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	captures := &fakeCaptureStore{err: errors.New("connection reset")}
	proc := &fakeProcessor{capture: &processor.Capture{CaptureID: "CAP-42", Status: processor.StatusCompleted}}
	svc, _ := newTestService(store, captures, proc)

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if apperr.GetKind(err) != apperr.KindPersistence {
		t.Fatalf("got %v, want persistence error", err)
	}
}

func TestCaptureProcessorFailure(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	captures := &fakeCaptureStore{}
	proc := &fakeProcessor{captureErr: apperr.Processor("capture not completed: status DECLINED", nil)}
	svc, _ := newTestService(store, captures, proc)

	_, err := svc.Capture(context.Background(), "slug-1", transport.CaptureRequest{ProcessorOrderID: "PROC-1"})
	if apperr.GetKind(err) != apperr.KindProcessor {
		t.Fatalf("got %v, want processor error", err)
	}
	if len(captures.recorded) != 0 {
		t.Errorf("recorded %d captures after declined capture, want 0", len(captures.recorded))
	}
}

func TestCreateProcessorOrder(t *testing.T) {
	q, items := sentQuotation("slug-1")
	store := &fakeQuotationStore{
		bySlug: map[string]*qrepo.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]qrepo.QuotationItem{q.ID: items},
	}
	proc := &fakeProcessor{}
	svc, _ := newTestService(store, &fakeCaptureStore{}, proc)

	resp, err := svc.CreateProcessorOrder(context.Background(), "slug-1")
	if err != nil {
		t.Fatalf("CreateProcessorOrder: %v", err)
	}
	if resp.ProcessorOrderID != "PROC-1" {
		t.Errorf("ProcessorOrderID = %q, want PROC-1", resp.ProcessorOrderID)
	}

	if len(proc.created) != 1 {
		t.Fatalf("created %d processor orders, want 1", len(proc.created))
	}
	req := proc.created[0]
	if req.FinalCents != 5200 || req.ItemTotal != 5000 || req.ShippingCents != 700 || req.DiscountCents != 500 {
		t.Errorf("order request = %+v, want 5200/5000/700/500", req)
	}
	if req.ReferenceID != q.ID.String() {
		t.Errorf("ReferenceID = %q, want quotation id", req.ReferenceID)
	}
}

func TestCreateDirectPaymentLink(t *testing.T) {
	store := &fakeQuotationStore{}
	svc, bus := newTestService(store, &fakeCaptureStore{}, &fakeProcessor{})

	resp, err := svc.CreateDirectPaymentLink(context.Background(), transport.DirectPaymentLinkRequest{
		BuyerName:  "Jane",
		BuyerEmail: "jane@example.com",
		Items: []transport.DirectPaymentLinkItem{
			{Name: "Custom engraving", Quantity: 1, UnitPriceCents: 9900},
			{Name: "Gift wrap", SKU: "WRAP-1", Quantity: 2, UnitPriceCents: 500},
		},
		ShippingCents: 700,
	})
	if err != nil {
		t.Fatalf("CreateDirectPaymentLink: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("created %d quotations, want 1", len(store.created))
	}
	q := store.created[0]
	if q.Status != "sent_to_client" {
		t.Errorf("status = %q, want sent_to_client", q.Status)
	}
	if q.TotalCents != 10900 || q.ShippingCents != 700 || q.FinalCents != 11600 {
		t.Errorf("amounts = %d/%d/%d, want 10900/700/11600", q.TotalCents, q.ShippingCents, q.FinalCents)
	}
	if q.Slug == nil || len(*q.Slug) != 64 {
		t.Fatalf("slug = %v, want 64 hex chars", q.Slug)
	}
	if !strings.HasSuffix(resp.PayLink, "/pay/"+*q.Slug) {
		t.Errorf("PayLink = %q, want suffix /pay/%s", resp.PayLink, *q.Slug)
	}
	if resp.AmountCents != 11600 {
		t.Errorf("AmountCents = %d, want 11600", resp.AmountCents)
	}
	if resp.QRCodePNG == "" {
		t.Error("QRCodePNG is empty")
	}

	lines := store.items[q.ID]
	if len(lines) != 2 {
		t.Fatalf("items = %d, want 2 cart lines", len(lines))
	}
	if lines[0].SnapshotName != "Custom engraving" || lines[0].UnitPriceCents != 9900 {
		t.Errorf("line 0 = %+v, want engraving at 9900", lines[0])
	}
	if lines[1].SnapshotSKU != "WRAP-1" || lines[1].Quantity != 2 {
		t.Errorf("line 1 = %+v, want WRAP-1 x2", lines[1])
	}

	if len(bus.published) != 1 || bus.published[0].EventName() != "payment.direct_link_created" {
		t.Fatalf("published = %v, want one payment.direct_link_created", bus.published)
	}
}

func TestCreateDirectPaymentLinkAppliesDiscount(t *testing.T) {
	store := &fakeQuotationStore{}
	svc, _ := newTestService(store, &fakeCaptureStore{}, &fakeProcessor{})

	dt := qtransport.DiscountPercentage
	resp, err := svc.CreateDirectPaymentLink(context.Background(), transport.DirectPaymentLinkRequest{
		BuyerName:  "Jane",
		BuyerEmail: "jane@example.com",
		Items: []transport.DirectPaymentLinkItem{
			{Name: "Widget", Quantity: 1, UnitPriceCents: 10000},
		},
		DiscountType:  &dt,
		DiscountValue: 10,
		ShippingCents: 700,
	})
	if err != nil {
		t.Fatalf("CreateDirectPaymentLink: %v", err)
	}

	// $100 base, 10% off, $7 shipping.
	if resp.TotalCents != 10000 || resp.DiscountCents != 1000 || resp.AmountCents != 9700 {
		t.Errorf("amounts = %d/%d/%d, want 10000/1000/9700", resp.TotalCents, resp.DiscountCents, resp.AmountCents)
	}
	q := store.created[0]
	if q.DiscountType == nil || *q.DiscountType != "percentage" || q.DiscountValue != 10 {
		t.Errorf("stored discount = %v/%d, want percentage/10", q.DiscountType, q.DiscountValue)
	}
	if q.FinalCents != 9700 {
		t.Errorf("FinalCents = %d, want 9700", q.FinalCents)
	}
}

func TestCreateDirectPaymentLinkInvalidDiscount(t *testing.T) {
	store := &fakeQuotationStore{}
	svc, _ := newTestService(store, &fakeCaptureStore{}, &fakeProcessor{})

	dt := qtransport.DiscountPercentage
	_, err := svc.CreateDirectPaymentLink(context.Background(), transport.DirectPaymentLinkRequest{
		BuyerName:  "Jane",
		BuyerEmail: "jane@example.com",
		Items: []transport.DirectPaymentLinkItem{
			{Name: "Widget", Quantity: 1, UnitPriceCents: 10000},
		},
		DiscountType:  &dt,
		DiscountValue: 101,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("got %v, want validation error", err)
	}
	if len(store.created) != 0 {
		t.Errorf("created %d quotations on invalid discount, want 0", len(store.created))
	}
}

func TestCreateDirectPaymentLinkDuplicateGuard(t *testing.T) {
	recent, _ := sentQuotation("slug-old")
	store := &fakeQuotationStore{recent: recent}
	svc, _ := newTestService(store, &fakeCaptureStore{}, &fakeProcessor{})

	_, err := svc.CreateDirectPaymentLink(context.Background(), transport.DirectPaymentLinkRequest{
		BuyerName:  "Jane",
		BuyerEmail: "jane@example.com",
		Items: []transport.DirectPaymentLinkItem{
			{Name: "Custom engraving", Quantity: 1, UnitPriceCents: 9900},
		},
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
	if len(store.created) != 0 {
		t.Errorf("created %d quotations behind the guard, want 0", len(store.created))
	}
}
