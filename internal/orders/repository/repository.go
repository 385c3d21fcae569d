package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShippingAddress is the structured delivery address on an order. All
// fields empty means no address is on file.
type ShippingAddress struct {
	Name       string `db:"shipping_name"`
	Line1      string `db:"shipping_line1"`
	Line2      string `db:"shipping_line2"`
	City       string `db:"shipping_city"`
	Region     string `db:"shipping_region"`
	PostalCode string `db:"shipping_postal_code"`
	Country    string `db:"shipping_country"`
}

// Empty reports whether no address was recorded.
func (a ShippingAddress) Empty() bool {
	return a == ShippingAddress{}
}

// Order is the database model for a materialized order.
type Order struct {
	ID               uuid.UUID       `db:"id"`
	QuotationID      uuid.UUID       `db:"quotation_id"`
	Status           string          `db:"status"`
	PaymentMethod    string          `db:"payment_method"`
	PaymentStatus    string          `db:"payment_status"`
	PaymentReference string          `db:"payment_reference"`
	BuyerName        string          `db:"buyer_name"`
	BuyerEmail       string          `db:"buyer_email"`
	Shipping         ShippingAddress
	TotalCents       int64           `db:"total_cents"`
	ShippingCents    int64           `db:"shipping_cents"`
	DiscountCents    int64           `db:"discount_cents"`
	Notes            string          `db:"notes"`
	CreatedAt        time.Time       `db:"created_at"`
}

// OrderItem is the database model for an order line item.
type OrderItem struct {
	ID             uuid.UUID `db:"id"`
	OrderID        uuid.UUID `db:"order_id"`
	ProductID      uuid.UUID `db:"product_id"`
	Name           string    `db:"name"`
	SKU            string    `db:"sku"`
	ImageURL       string    `db:"image_url"`
	Quantity       int       `db:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	CreatedAt      time.Time `db:"created_at"`
}

// ListParams contains parameters for listing orders.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing orders.
type ListResult struct {
	Items      []Order
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

const orderColumns = `id, quotation_id, status, payment_method, payment_status,
		payment_reference, buyer_name, buyer_email,
		shipping_name, shipping_line1, shipping_line2, shipping_city,
		shipping_region, shipping_postal_code, shipping_country,
		total_cents, shipping_cents,
		discount_cents, COALESCE(notes, ''), created_at`

// Repository provides database operations for orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID retrieves an order by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var o Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.QuotationID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaymentReference, &o.BuyerName, &o.BuyerEmail,
		&o.Shipping.Name, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City,
		&o.Shipping.Region, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.TotalCents, &o.ShippingCents,
		&o.DiscountCents, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// GetItems retrieves all line items for an order.
func (r *Repository) GetItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, sku, image_url,
			quantity, unit_price_cents, created_at
		FROM order_items WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.SKU, &it.ImageURL,
			&it.Quantity, &it.UnitPriceCents, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}

// TransitionStatus applies a conditional status change and reports whether a
// row actually moved.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	query := `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`
	result, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List retrieves orders with filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	baseQuery := `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)`

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, statusParam).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + orderColumns + ` ` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, selectQuery, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.QuotationID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
			&o.PaymentReference, &o.BuyerName, &o.BuyerEmail,
			&o.Shipping.Name, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City,
			&o.Shipping.Region, &o.Shipping.PostalCode, &o.Shipping.Country,
			&o.TotalCents, &o.ShippingCents,
			&o.DiscountCents, &o.Notes, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}
