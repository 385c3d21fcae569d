// Package whatsapp builds wa.me deep links for sharing payment links over
// WhatsApp. No API call happens here; opening the link hands the pre-filled
// message to the buyer's WhatsApp client.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"

	"storefront_backend/platform/config"
	"storefront_backend/platform/phone"
)

// LinkBuilder produces wa.me links addressed to the store's WhatsApp number.
type LinkBuilder struct {
	number    string
	storeName string
}

// NewLinkBuilder creates a link builder from messaging config. Returns nil
// when no WhatsApp number is configured; callers treat a nil builder as
// messaging disabled.
func NewLinkBuilder(cfg config.MessagingConfig) *LinkBuilder {
	if cfg.GetWhatsAppNumber() == "" {
		return nil
	}
	return &LinkBuilder{
		number:    strings.TrimPrefix(phone.NormalizeE164(cfg.GetWhatsAppNumber()), "+"),
		storeName: cfg.GetStoreName(),
	}
}

// PaymentLink builds a wa.me link whose pre-filled message points the buyer
// at the payment page.
func (b *LinkBuilder) PaymentLink(buyerName, payLink string, amountCents int64) string {
	if b == nil {
		return ""
	}

	message := fmt.Sprintf("Hi %s, here is your payment link from %s for %s: %s",
		buyerName, b.storeName, formatAmount(amountCents), payLink)

	return "https://wa.me/" + b.number + "?text=" + url.QueryEscape(message)
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
