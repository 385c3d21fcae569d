// Package payment provides the payment domain module: processor checkout,
// capture reconciliation, and direct payment links.
package payment

import (
	apphttp "storefront_backend/internal/http"
	"storefront_backend/internal/payment/handler"
	"storefront_backend/internal/payment/processor"
	"storefront_backend/internal/payment/repository"
	"storefront_backend/internal/payment/service"
	qrepo "storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/whatsapp"
	"storefront_backend/platform/config"
	"storefront_backend/platform/events"
	"storefront_backend/platform/logger"
	"storefront_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the payment domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new payment module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, cfg *config.Config, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	proc := processor.New(cfg, log)
	wa := whatsapp.NewLinkBuilder(cfg)
	svc := service.New(qrepo.New(pool), repository.New(pool), proc, wa, cfg, log)
	svc.SetEventBus(eventBus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "payment"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	links := ctx.Protected.Group("/payment-links")
	m.handler.RegisterRoutes(links)

	// Buyer-facing routes are unauthenticated but strictly rate limited.
	pay := ctx.V1.Group("/public/pay")
	if ctx.PublicRateLimiter != nil {
		pay.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.handler.RegisterPublicRoutes(pay)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
