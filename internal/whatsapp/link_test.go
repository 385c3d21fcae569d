package whatsapp

import (
	"strings"
	"testing"
)

type fakeMessagingConfig struct{ number string }

func (f fakeMessagingConfig) GetWhatsAppNumber() string { return f.number }
func (f fakeMessagingConfig) GetStoreName() string      { return "Acme Store" }
func (f fakeMessagingConfig) GetAppBaseURL() string     { return "https://shop.example.com" }

func TestPaymentLink(t *testing.T) {
	b := NewLinkBuilder(fakeMessagingConfig{number: "+1 415 555 2671"})
	if b == nil {
		t.Fatal("expected builder, got nil")
	}

	link := b.PaymentLink("Jane", "https://shop.example.com/pay/abc", 5250)

	if !strings.HasPrefix(link, "https://wa.me/14155552671?text=") {
		t.Errorf("link = %q, want wa.me prefix with normalized number", link)
	}
	if !strings.Contains(link, "%2452.50") && !strings.Contains(link, "%2452%2E50") {
		t.Errorf("link = %q, want escaped $52.50 amount", link)
	}
	if !strings.Contains(link, "Jane") {
		t.Errorf("link = %q, want buyer name in message", link)
	}
}

func TestPaymentLinkDisabled(t *testing.T) {
	b := NewLinkBuilder(fakeMessagingConfig{})
	if b != nil {
		t.Fatal("expected nil builder without a configured number")
	}
	if got := b.PaymentLink("Jane", "x", 100); got != "" {
		t.Errorf("nil builder PaymentLink = %q, want empty", got)
	}
}
