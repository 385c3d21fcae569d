// Package repository persists the capture transaction: the quotation close
// and the order materialization commit or roll back together.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// OrderItemParams is one snapshot line to copy onto the new order.
type OrderItemParams struct {
	ProductID      uuid.UUID
	Name           string
	SKU            string
	ImageURL       string
	Quantity       int
	UnitPriceCents int64
}

// ShippingAddress is the structured delivery address stored on the order
// row. The zero value means no address is on file.
type ShippingAddress struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// CaptureParams is everything recorded when a capture is materialized.
// PaymentReference is the processor capture id and is unique across orders;
// replays of the same capture hit that constraint instead of inserting twice.
type CaptureParams struct {
	QuotationID      uuid.UUID
	PaymentReference string
	PaymentMethod    string
	BuyerName        string
	BuyerEmail       string
	Shipping         ShippingAddress
	TotalCents       int64
	ShippingCents    int64
	DiscountCents    int64
	Items            []OrderItemParams
}

// Repository provides database operations for payment capture.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new payment repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordCapture closes the quotation and creates the order in one
// transaction. The quotation update is conditional on sent_to_client, so out
// of any number of concurrent captures exactly one commits; the rest get a
// conflict and no order row.
func (r *Repository) RecordCapture(ctx context.Context, p CaptureParams) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	result, err := tx.Exec(ctx, `
		UPDATE quotations SET status = 'closed_won', responded_at = $2
		WHERE id = $1 AND status = 'sent_to_client'`,
		p.QuotationID, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to close quotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return uuid.Nil, apperr.Conflict("quotation is not awaiting payment")
	}

	orderID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, quotation_id, payment_reference, payment_method, payment_status,
			buyer_name, buyer_email,
			shipping_name, shipping_line1, shipping_line2, shipping_city,
			shipping_region, shipping_postal_code, shipping_country,
			total_cents, shipping_cents, discount_cents,
			status, created_at
		) VALUES ($1, $2, $3, $4, 'paid', $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 'paid', $17)`,
		orderID, p.QuotationID, p.PaymentReference, p.PaymentMethod,
		p.BuyerName, p.BuyerEmail,
		p.Shipping.Name, p.Shipping.Line1, p.Shipping.Line2, p.Shipping.City,
		p.Shipping.Region, p.Shipping.PostalCode, p.Shipping.Country,
		p.TotalCents, p.ShippingCents, p.DiscountCents,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, apperr.Conflict("payment capture already recorded")
		}
		return uuid.Nil, fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, name, sku, image_url,
			quantity, unit_price_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, it := range p.Items {
		if _, err := tx.Exec(ctx, itemQuery,
			uuid.New(), orderID, it.ProductID, it.Name, it.SKU, it.ImageURL,
			it.Quantity, it.UnitPriceCents, now,
		); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit capture: %w", err)
	}
	return orderID, nil
}
