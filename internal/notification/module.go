// Package notification provides event handlers for sending emails in
// response to domain events. Domain modules publish events and never touch
// email providers or templates directly.
package notification

import (
	"context"
	"fmt"
	"html"
	"strings"

	"storefront_backend/internal/email"
	"storefront_backend/internal/events"
	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// Name returns the module name for logging.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to all events it cares about.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.QuotationCreated{}.EventName(), m)
	bus.Subscribe(events.QuotationSent{}.EventName(), m)
	bus.Subscribe(events.PaymentCaptured{}.EventName(), m)
	bus.Subscribe(events.DirectPaymentLinkCreated{}.EventName(), m)
	bus.Subscribe(events.OrderSold{}.EventName(), m)
}

// Handle dispatches events to their specific handlers. Errors bubble up to
// the bus, which logs them; nothing here ever reaches the request path.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuotationCreated:
		return m.handleQuotationCreated(ctx, e)
	case events.QuotationSent:
		return m.handleQuotationSent(ctx, e)
	case events.PaymentCaptured:
		return m.handlePaymentCaptured(ctx, e)
	case events.DirectPaymentLinkCreated:
		return m.handleDirectPaymentLinkCreated(ctx, e)
	case events.OrderSold:
		return m.handleOrderSold(ctx, e)
	default:
		return nil
	}
}

// handleQuotationCreated confirms receipt to the requester and notifies the
// operator. Both sends run concurrently; either failing fails the handler so
// the bus logs it.
func (m *Module) handleQuotationCreated(ctx context.Context, e events.QuotationCreated) error {
	g, gctx := errgroup.WithContext(ctx)

	if e.RequesterEmail != "" {
		g.Go(func() error {
			return m.sender.SendQuotationReceivedEmail(gctx, e.RequesterEmail, e.RequesterName, e.ItemCount, e.TotalCents)
		})
	}

	if operator := m.cfg.GetOperatorEmail(); operator != "" {
		g.Go(func() error {
			body := m.operatorNotice("New quotation request",
				fmt.Sprintf("%s requested a quotation with %d item(s), list total %s.",
					html.EscapeString(e.RequesterName), e.ItemCount, formatCents(e.TotalCents)))
			return m.sender.SendCustomEmail(gctx, operator, "New quotation request", body)
		})
	}

	return g.Wait()
}

func (m *Module) handleQuotationSent(ctx context.Context, e events.QuotationSent) error {
	if e.RequesterEmail == "" {
		return nil
	}
	payLink := m.payLink(e.Slug)
	return m.sender.SendQuotationSentEmail(ctx, e.RequesterEmail, e.RequesterName, payLink,
		e.TotalCents, e.DiscountCents, e.ShippingCents, e.FinalCents)
}

// handlePaymentCaptured sends the buyer confirmation and the operator "new
// sale" notice.
func (m *Module) handlePaymentCaptured(ctx context.Context, e events.PaymentCaptured) error {
	g, gctx := errgroup.WithContext(ctx)

	if e.BuyerEmail != "" {
		g.Go(func() error {
			return m.sender.SendPaymentConfirmedEmail(gctx, e.BuyerEmail, e.BuyerName, e.CaptureID, e.TotalCents)
		})
	}

	if operator := m.cfg.GetOperatorEmail(); operator != "" {
		g.Go(func() error {
			body := m.operatorNotice("New sale",
				fmt.Sprintf("%s paid %s (capture %s, %d item(s)).",
					html.EscapeString(e.BuyerName), formatCents(e.TotalCents), html.EscapeString(e.CaptureID), e.ItemCount))
			return m.sender.SendCustomEmail(gctx, operator, "New sale", body)
		})
	}

	return g.Wait()
}

func (m *Module) handleDirectPaymentLinkCreated(ctx context.Context, e events.DirectPaymentLinkCreated) error {
	operator := m.cfg.GetOperatorEmail()
	if operator == "" {
		return nil
	}
	body := m.operatorNotice("Payment link issued",
		fmt.Sprintf("A payment link for %s over %s was issued: %s",
			html.EscapeString(e.BuyerEmail), formatCents(e.FinalCents), html.EscapeString(e.PayLink)))
	return m.sender.SendCustomEmail(ctx, operator, "Payment link issued", body)
}

func (m *Module) handleOrderSold(ctx context.Context, e events.OrderSold) error {
	if e.BuyerEmail == "" {
		return nil
	}
	return m.sender.SendOrderSoldEmail(ctx, e.BuyerEmail, e.BuyerName, e.TotalCents)
}

func (m *Module) payLink(slug string) string {
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + "/pay/" + slug
}

func (m *Module) operatorNotice(heading, text string) string {
	return fmt.Sprintf("<h2>%s</h2><p>%s</p><p>%s</p>",
		html.EscapeString(heading), text, html.EscapeString(m.cfg.GetStoreName()))
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
