package service

import (
	"context"

	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"
)

// GetPublic retrieves the buyer-facing view of a quotation by slug. Only
// quotations that were actually released are visible; everything else looks
// like a missing slug so the token leaks no lifecycle information.
func (s *Service) GetPublic(ctx context.Context, slug string) (*transport.PublicQuotationResponse, error) {
	q, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if q.Status != string(transport.StatusSentToClient) && q.Status != string(transport.StatusClosedWon) {
		return nil, apperr.NotFound("quotation not found")
	}

	items, err := s.repo.GetItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	total := q.TotalCents
	if total == 0 {
		// Rows written before totals were persisted carry a zero header total.
		// Recompute from the immutable snapshots so old links keep working.
		total = recomputeTotal(items)
	}

	final := q.FinalCents
	if final == 0 && q.DiscountType == nil {
		final = total + q.ShippingCents
	}

	discount := total + q.ShippingCents - final
	if discount < 0 {
		discount = 0
	}

	respItems := make([]transport.QuotationItemResponse, len(items))
	for i, it := range items {
		respItems[i] = itemResponse(it)
	}

	var discountType *transport.DiscountType
	if q.DiscountType != nil {
		t := transport.DiscountType(*q.DiscountType)
		discountType = &t
	}

	return &transport.PublicQuotationResponse{
		Slug:          slug,
		Status:        transport.QuotationStatus(q.Status),
		RequesterName: q.RequesterName,
		DiscountType:  discountType,
		TotalCents:    total,
		DiscountCents: discount,
		ShippingCents: q.ShippingCents,
		FinalCents:    final,
		Payable:       q.Status == string(transport.StatusSentToClient),
		Items:         respItems,
		CreatedAt:     q.CreatedAt,
	}, nil
}

func recomputeTotal(items []repository.QuotationItem) int64 {
	var total int64
	for _, it := range items {
		total += it.SnapshotPriceCents * int64(it.Quantity)
	}
	return total
}
