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

// ── Domain Models ─────────────────────────────────────────────────────────────

// Quotation is the database model for a quotation header.
type Quotation struct {
	ID            uuid.UUID  `db:"id"`
	Status        string     `db:"status"`
	RequesterName string     `db:"requester_name"`
	RequesterOrg  string     `db:"requester_org"`
	Email         string     `db:"email"`
	Phone         string     `db:"phone"`
	Notes         string     `db:"notes"`
	Source        string     `db:"source"`
	Locale        string     `db:"locale"`
	Channel       string     `db:"channel"`
	DiscountType  *string    `db:"discount_type"`
	DiscountValue int64      `db:"discount_value"`
	TotalCents    int64      `db:"total_cents"`
	FinalCents    int64      `db:"final_cents"`
	ShippingCents int64      `db:"shipping_cents"`
	Slug          *string    `db:"quote_slug"`
	RespondedAt   *time.Time `db:"responded_at"`
	ManagerNotes  string     `db:"manager_notes"`
	AdminNotes    string     `db:"admin_notes"`
	CreatedAt     time.Time  `db:"created_at"`
}

// QuotationItem is the database model for a quotation line item. The
// snapshot_* columns are the immutable catalog copy taken at quotation time.
type QuotationItem struct {
	ID                 uuid.UUID `db:"id"`
	QuotationID        uuid.UUID `db:"quotation_id"`
	ProductID          uuid.UUID `db:"product_id"`
	Quantity           int       `db:"quantity"`
	UnitPriceCents     int64     `db:"unit_price_cents"`
	DiscountPercentage *int64    `db:"discount_percentage"`
	DiscountCents      *int64    `db:"discount_cents"`
	SnapshotName       string    `db:"snapshot_name"`
	SnapshotSKU        string    `db:"snapshot_sku"`
	SnapshotImageURL   string    `db:"snapshot_image_url"`
	SnapshotPriceCents int64     `db:"snapshot_price_cents"`
	CreatedAt          time.Time `db:"created_at"`
}

// DiscountCode is a stored, code-based discount definition.
type DiscountCode struct {
	Code             string     `db:"code"`
	DiscountType     string     `db:"discount_type"`
	Value            int64      `db:"value"`
	MaxDiscountCents int64      `db:"max_discount_cents"`
	Active           bool       `db:"active"`
	ValidFrom        *time.Time `db:"valid_from"`
	ValidUntil       *time.Time `db:"valid_until"`
	UsageLimit       int        `db:"usage_limit"`
	UsageCount       int        `db:"usage_count"`
	MinOrderCents    int64      `db:"min_order_cents"`
	Category         *string    `db:"category"`
}

// ItemDiscount carries a per-item discount annotation to persist.
type ItemDiscount struct {
	ItemID  uuid.UUID
	Percent *int64
	Cents   *int64
}

// MarkSentParams is everything written by the priced→sent transition.
// DiscountCode, when set, is redeemed inside the same transaction.
type MarkSentParams struct {
	ID            uuid.UUID
	DiscountType  *string
	DiscountValue int64
	FinalCents    int64
	ShippingCents int64
	Slug          string
	ManagerNotes  string
	RespondedAt   time.Time
	ItemDiscounts []ItemDiscount
	DiscountCode  string
}

// ListParams contains parameters for listing quotations.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing quotations.
type ListResult struct {
	Items      []Quotation
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const quotationNotFoundMsg = "quotation not found"

const quotationColumns = `id, status, requester_name, requester_org, email, phone, notes,
		source, locale, channel, discount_type, discount_value,
		total_cents, final_cents, shipping_cents, quote_slug,
		responded_at, manager_notes, admin_notes, created_at`

// Repository provides database operations for quotations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithItems inserts a quotation and its line items in a single transaction.
func (r *Repository) CreateWithItems(ctx context.Context, q *Quotation, items []QuotationItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quotationQuery := `
		INSERT INTO quotations (
			id, status, requester_name, requester_org, email, phone, notes,
			source, locale, channel, discount_type, discount_value,
			total_cents, final_cents, shipping_cents, quote_slug,
			responded_at, manager_notes, admin_notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	if _, err := tx.Exec(ctx, quotationQuery,
		q.ID, q.Status, q.RequesterName, q.RequesterOrg, q.Email, q.Phone, q.Notes,
		q.Source, q.Locale, q.Channel, q.DiscountType, q.DiscountValue,
		q.TotalCents, q.FinalCents, q.ShippingCents, q.Slug,
		q.RespondedAt, q.ManagerNotes, q.AdminNotes, q.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quotation: %w", err)
	}

	itemQuery := `
		INSERT INTO quotation_items (
			id, quotation_id, product_id, quantity, unit_price_cents,
			discount_percentage, discount_cents,
			snapshot_name, snapshot_sku, snapshot_image_url, snapshot_price_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuotationID, item.ProductID, item.Quantity, item.UnitPriceCents,
			item.DiscountPercentage, item.DiscountCents,
			item.SnapshotName, item.SnapshotSKU, item.SnapshotImageURL, item.SnapshotPriceCents, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert quotation item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a quotation by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetBySlug retrieves a quotation by its public slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE quote_slug = $1`
	return r.scanOne(ctx, query, slug)
}

func (r *Repository) scanOne(ctx context.Context, query string, arg any) (*Quotation, error) {
	var q Quotation
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&q.ID, &q.Status, &q.RequesterName, &q.RequesterOrg, &q.Email, &q.Phone, &q.Notes,
		&q.Source, &q.Locale, &q.Channel, &q.DiscountType, &q.DiscountValue,
		&q.TotalCents, &q.FinalCents, &q.ShippingCents, &q.Slug,
		&q.RespondedAt, &q.ManagerNotes, &q.AdminNotes, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quotationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &q, nil
}

// GetItems retrieves all line items for a quotation.
func (r *Repository) GetItems(ctx context.Context, quotationID uuid.UUID) ([]QuotationItem, error) {
	query := `
		SELECT id, quotation_id, product_id, quantity, unit_price_cents,
			discount_percentage, discount_cents,
			snapshot_name, snapshot_sku, snapshot_image_url, snapshot_price_cents, created_at
		FROM quotation_items WHERE quotation_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotation items: %w", err)
	}
	defer rows.Close()

	var items []QuotationItem
	for rows.Next() {
		var it QuotationItem
		if err := rows.Scan(
			&it.ID, &it.QuotationID, &it.ProductID, &it.Quantity, &it.UnitPriceCents,
			&it.DiscountPercentage, &it.DiscountCents,
			&it.SnapshotName, &it.SnapshotSKU, &it.SnapshotImageURL, &it.SnapshotPriceCents, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotation items: %w", err)
	}
	return items, nil
}

// MarkSent performs the pricing transition in one transaction: quotation
// fields, per-item discount annotations, and the discount code redemption.
// The status condition makes the slug mint happen at most once; false means
// the quotation was not in a sendable state. A code that is out of uses
// rolls back the whole transition, so the quotation is never sent with a
// discount that could not be redeemed.
func (r *Repository) MarkSent(ctx context.Context, p MarkSentParams) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE quotations SET
			status = 'sent_to_client', discount_type = $2, discount_value = $3,
			final_cents = $4, shipping_cents = $5, quote_slug = $6,
			manager_notes = $7, responded_at = $8
		WHERE id = $1 AND status IN ('received', 'priced')`

	result, err := tx.Exec(ctx, query,
		p.ID, p.DiscountType, p.DiscountValue,
		p.FinalCents, p.ShippingCents, p.Slug,
		p.ManagerNotes, p.RespondedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark quotation sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	itemQuery := `
		UPDATE quotation_items SET discount_percentage = $3, discount_cents = $4
		WHERE id = $1 AND quotation_id = $2`
	for _, d := range p.ItemDiscounts {
		if _, err := tx.Exec(ctx, itemQuery, d.ItemID, p.ID, d.Percent, d.Cents); err != nil {
			return false, fmt.Errorf("failed to annotate item discount: %w", err)
		}
	}

	if p.DiscountCode != "" {
		// Zero limit means unlimited. The row-level condition keeps concurrent
		// redemptions from exceeding the limit.
		redeem, err := tx.Exec(ctx, `
			UPDATE discount_codes SET usage_count = usage_count + 1
			WHERE code = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`,
			p.DiscountCode,
		)
		if err != nil {
			return false, fmt.Errorf("failed to redeem discount code: %w", err)
		}
		if redeem.RowsAffected() == 0 {
			return false, apperr.Validation("discount code usage limit reached")
		}
	}

	return true, tx.Commit(ctx)
}

// TransitionStatus applies a conditional status change and reports whether a
// row actually moved. Used for every transition that guards money movement.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	query := `UPDATE quotations SET status = $3, responded_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.pool.Exec(ctx, query, id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to transition quotation status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// FindRecentByEmailSource returns the newest quotation matching email and
// source created at or after the cutoff, or nil. Backs the direct-payment
// duplicate guard.
func (r *Repository) FindRecentByEmailSource(ctx context.Context, email, source string, cutoff time.Time) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + `
		FROM quotations
		WHERE email = $1 AND source = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1`

	var out Quotation
	scanErr := r.pool.QueryRow(ctx, query, email, source, cutoff).Scan(
		&out.ID, &out.Status, &out.RequesterName, &out.RequesterOrg, &out.Email, &out.Phone, &out.Notes,
		&out.Source, &out.Locale, &out.Channel, &out.DiscountType, &out.DiscountValue,
		&out.TotalCents, &out.FinalCents, &out.ShippingCents, &out.Slug,
		&out.RespondedAt, &out.ManagerNotes, &out.AdminNotes, &out.CreatedAt,
	)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent quotation: %w", scanErr)
	}
	return &out, nil
}

// List retrieves quotations with filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	baseQuery := `
		FROM quotations
		WHERE ($1::text IS NULL OR status = $1)`

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, statusParam).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quotations: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + quotationColumns + ` ` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, selectQuery, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var items []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(
			&q.ID, &q.Status, &q.RequesterName, &q.RequesterOrg, &q.Email, &q.Phone, &q.Notes,
			&q.Source, &q.Locale, &q.Channel, &q.DiscountType, &q.DiscountValue,
			&q.TotalCents, &q.FinalCents, &q.ShippingCents, &q.Slug,
			&q.RespondedAt, &q.ManagerNotes, &q.AdminNotes, &q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetDiscountCode loads a discount code definition.
func (r *Repository) GetDiscountCode(ctx context.Context, code string) (*DiscountCode, error) {
	query := `
		SELECT code, discount_type, value, max_discount_cents, active,
			valid_from, valid_until, usage_limit, usage_count, min_order_cents, category
		FROM discount_codes WHERE code = $1`

	var dc DiscountCode
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&dc.Code, &dc.DiscountType, &dc.Value, &dc.MaxDiscountCents, &dc.Active,
		&dc.ValidFrom, &dc.ValidUntil, &dc.UsageLimit, &dc.UsageCount, &dc.MinOrderCents, &dc.Category,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("discount code not found")
		}
		return nil, fmt.Errorf("failed to get discount code: %w", err)
	}
	return &dc, nil
}
