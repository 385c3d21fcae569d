// Package quotation provides the quotation domain module.
package quotation

import (
	apphttp "storefront_backend/internal/http"
	"storefront_backend/internal/quotation/handler"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/service"
	"storefront_backend/platform/events"
	"storefront_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotation domain module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	service       *service.Service
}

// NewModule creates a new quotation module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	svc.SetEventBus(eventBus)

	return &Module{
		handler:       handler.New(svc, val),
		publicHandler: handler.NewPublicHandler(svc, val),
		service:       svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotation"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotations := ctx.Protected.Group("/quotations")
	m.handler.RegisterRoutes(quotations)

	// Public routes carry the strict per-IP limiter instead of auth.
	publicQuotations := ctx.V1.Group("/public/quotations")
	if ctx.PublicRateLimiter != nil {
		publicQuotations.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.publicHandler.RegisterRoutes(publicQuotations)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
