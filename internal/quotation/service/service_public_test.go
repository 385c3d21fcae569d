package service

import (
	"context"
	"testing"
	"time"

	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
)

func slugQuotation(status string, slug string) (*repository.Quotation, []repository.QuotationItem) {
	id := uuid.New()
	q := &repository.Quotation{
		ID:            id,
		Status:        status,
		RequesterName: "Jane Requester",
		Email:         "jane@example.com",
		TotalCents:    5000,
		FinalCents:    5700,
		ShippingCents: 700,
		Slug:          &slug,
		CreatedAt:     time.Now(),
	}
	items := []repository.QuotationItem{
		{ID: uuid.New(), QuotationID: id, ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 2000, SnapshotName: "Widget", SnapshotPriceCents: 2000},
		{ID: uuid.New(), QuotationID: id, ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1500, SnapshotName: "Gadget", SnapshotPriceCents: 1500},
	}
	return q, items
}

func TestGetPublicHidesUnreleasedQuotations(t *testing.T) {
	for _, status := range []string{"received", "priced", "closed_lost"} {
		q, items := slugQuotation(status, "slug-1")
		store := &fakeStore{
			bySlug: map[string]*repository.Quotation{"slug-1": q},
			items:  map[uuid.UUID][]repository.QuotationItem{q.ID: items},
		}
		svc, _ := newPricingService(store)

		_, err := svc.GetPublic(context.Background(), "slug-1")
		if apperr.GetKind(err) != apperr.KindNotFound {
			t.Errorf("status %s: got %v, want not found", status, err)
		}
	}
}

func TestGetPublicVisibleAfterSend(t *testing.T) {
	q, items := slugQuotation("sent_to_client", "slug-1")
	store := &fakeStore{
		bySlug: map[string]*repository.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]repository.QuotationItem{q.ID: items},
	}
	svc, _ := newPricingService(store)

	resp, err := svc.GetPublic(context.Background(), "slug-1")
	if err != nil {
		t.Fatalf("GetPublic: %v", err)
	}
	if !resp.Payable {
		t.Error("Payable = false for a sent quotation, want true")
	}
	if resp.TotalCents != 5000 || resp.FinalCents != 5700 {
		t.Errorf("amounts = %d/%d, want 5000/5700", resp.TotalCents, resp.FinalCents)
	}
	if len(resp.Items) != 2 {
		t.Errorf("items = %d, want 2", len(resp.Items))
	}
}

func TestGetPublicWonQuotationNotPayable(t *testing.T) {
	q, items := slugQuotation("closed_won", "slug-1")
	store := &fakeStore{
		bySlug: map[string]*repository.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]repository.QuotationItem{q.ID: items},
	}
	svc, _ := newPricingService(store)

	resp, err := svc.GetPublic(context.Background(), "slug-1")
	if err != nil {
		t.Fatalf("GetPublic: %v", err)
	}
	if resp.Payable {
		t.Error("Payable = true for a paid quotation, want false")
	}
	if resp.Status != transport.StatusClosedWon {
		t.Errorf("status = %q, want closed_won", resp.Status)
	}
}

func TestGetPublicRecomputesZeroTotal(t *testing.T) {
	q, items := slugQuotation("sent_to_client", "slug-1")
	// A legacy row: no persisted totals, no discount ever applied.
	q.TotalCents = 0
	q.FinalCents = 0
	store := &fakeStore{
		bySlug: map[string]*repository.Quotation{"slug-1": q},
		items:  map[uuid.UUID][]repository.QuotationItem{q.ID: items},
	}
	svc, _ := newPricingService(store)

	resp, err := svc.GetPublic(context.Background(), "slug-1")
	if err != nil {
		t.Fatalf("GetPublic: %v", err)
	}
	// Snapshots: $20 x1 + $15 x2 = $50, plus $7 shipping.
	if resp.TotalCents != 5000 {
		t.Errorf("TotalCents = %d, want 5000 recomputed from snapshots", resp.TotalCents)
	}
	if resp.FinalCents != 5700 {
		t.Errorf("FinalCents = %d, want 5700", resp.FinalCents)
	}
	if resp.DiscountCents != 0 {
		t.Errorf("DiscountCents = %d, want 0", resp.DiscountCents)
	}
}

func TestGetPublicUnknownSlug(t *testing.T) {
	store := &fakeStore{bySlug: map[string]*repository.Quotation{}}
	svc, _ := newPricingService(store)

	_, err := svc.GetPublic(context.Background(), "nope")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}
