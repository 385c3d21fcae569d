package service

import (
	"fmt"
	"time"

	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
)

// DiscountSpec describes one discount to apply. For percentage-typed specs
// Value is a whole percentage in [0,100]; for amount-typed specs it is cents.
type DiscountSpec struct {
	Type             transport.DiscountType
	Value            int64
	MaxDiscountCents int64
}

// DiscountLine is the per-item context handed to the engine.
type DiscountLine struct {
	ItemID          uuid.UUID
	LineCents       int64
	OverridePercent *int64
}

// DiscountContext carries everything beyond the base amount that pricing needs.
type DiscountContext struct {
	ShippingCents int64
	Lines         []DiscountLine
}

// ItemDiscountResult is the per-line annotation produced by item-scoped specs.
type ItemDiscountResult struct {
	ItemID  uuid.UUID
	Percent *int64
	Cents   *int64
}

// DiscountResult is the outcome of applying a discount spec.
// FinalCents always includes shipping.
type DiscountResult struct {
	FinalCents    int64
	DiscountCents int64
	ItemDiscounts []ItemDiscountResult
}

// ApplyDiscount computes the discounted total for a quotation. Invalid specs
// yield a typed rejection, never a silent no-op. For every type except
// total_override the result satisfies 0 <= final-shipping <= base.
func ApplyDiscount(baseCents int64, spec DiscountSpec, ctx DiscountContext) (DiscountResult, error) {
	if baseCents < 0 {
		return DiscountResult{}, apperr.Validation("base amount must not be negative")
	}

	switch spec.Type {
	case transport.DiscountPercentage:
		if spec.Value < 0 || spec.Value > 100 {
			return DiscountResult{}, apperr.Validation("percentage must be between 0 and 100")
		}
		discount := baseCents * spec.Value / 100
		if spec.MaxDiscountCents > 0 && discount > spec.MaxDiscountCents {
			discount = spec.MaxDiscountCents
		}
		return result(baseCents, discount, ctx.ShippingCents, nil), nil

	case transport.DiscountFixedAmount:
		if spec.Value < 0 {
			return DiscountResult{}, apperr.Validation("fixed discount must not be negative")
		}
		discount := spec.Value
		if discount > baseCents {
			discount = baseCents
		}
		return result(baseCents, discount, ctx.ShippingCents, nil), nil

	case transport.DiscountTotalOverride:
		if spec.Value < 0 {
			return DiscountResult{}, apperr.Validation("override amount must not be negative")
		}
		// Final is taken verbatim; the discount figure is display-only.
		discount := baseCents - (spec.Value - ctx.ShippingCents)
		if discount < 0 {
			discount = 0
		}
		return DiscountResult{FinalCents: spec.Value, DiscountCents: discount}, nil

	case transport.DiscountProductPercentage:
		if spec.Value < 0 || spec.Value > 100 {
			return DiscountResult{}, apperr.Validation("percentage must be between 0 and 100")
		}
		var discounted int64
		annotations := make([]ItemDiscountResult, 0, len(ctx.Lines))
		for _, line := range ctx.Lines {
			percent := spec.Value
			if line.OverridePercent != nil {
				if *line.OverridePercent < 0 || *line.OverridePercent > 100 {
					return DiscountResult{}, apperr.Validation("item percentage must be between 0 and 100")
				}
				percent = *line.OverridePercent
			}
			discounted += line.LineCents * (100 - percent) / 100
			p := percent
			annotations = append(annotations, ItemDiscountResult{ItemID: line.ItemID, Percent: &p})
		}
		res := result(baseCents, baseCents-discounted, ctx.ShippingCents, annotations)
		return res, nil

	case transport.DiscountProductFixed:
		if spec.Value < 0 {
			return DiscountResult{}, apperr.Validation("fixed discount must not be negative")
		}
		var totalDiscount int64
		annotations := make([]ItemDiscountResult, 0, len(ctx.Lines))
		for _, line := range ctx.Lines {
			cut := spec.Value
			if cut > line.LineCents {
				cut = line.LineCents
			}
			totalDiscount += cut
			c := cut
			annotations = append(annotations, ItemDiscountResult{ItemID: line.ItemID, Cents: &c})
		}
		return result(baseCents, totalDiscount, ctx.ShippingCents, annotations), nil

	default:
		return DiscountResult{}, apperr.Validation(fmt.Sprintf("unknown discount type %q", spec.Type))
	}
}

func result(baseCents, discountCents, shippingCents int64, annotations []ItemDiscountResult) DiscountResult {
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > baseCents {
		discountCents = baseCents
	}
	return DiscountResult{
		FinalCents:    baseCents - discountCents + shippingCents,
		DiscountCents: discountCents,
		ItemDiscounts: annotations,
	}
}

// ValidateDiscountCode checks a stored code against the order it is being
// applied to. skipMinimum disables the minimum-order check, used when
// recomputing a quotation that already committed to the code.
func ValidateDiscountCode(code *repository.DiscountCode, orderCents int64, categories []string, skipMinimum bool, now time.Time) error {
	if !code.Active {
		return apperr.Validation("discount code is not active")
	}
	if code.ValidFrom != nil && now.Before(*code.ValidFrom) {
		return apperr.Validation("discount code is not yet valid")
	}
	if code.ValidUntil != nil && !now.Before(*code.ValidUntil) {
		return apperr.Validation("discount code has expired")
	}
	if code.UsageLimit > 0 && code.UsageCount >= code.UsageLimit {
		return apperr.Validation("discount code usage limit reached")
	}
	if !skipMinimum && code.MinOrderCents > 0 && orderCents < code.MinOrderCents {
		return apperr.Validation("order total below discount code minimum")
	}
	if code.Category != nil {
		matched := false
		for _, c := range categories {
			if c == *code.Category {
				matched = true
				break
			}
		}
		if !matched {
			return apperr.Validation("discount code does not apply to these products")
		}
	}
	return nil
}
