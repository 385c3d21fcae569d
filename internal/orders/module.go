// Package orders provides the orders domain module.
package orders

import (
	apphttp "storefront_backend/internal/http"
	"storefront_backend/internal/orders/handler"
	"storefront_backend/internal/orders/repository"
	"storefront_backend/internal/orders/service"
	"storefront_backend/platform/events"
	"storefront_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the orders domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new orders module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	svc.SetEventBus(eventBus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	m.handler.RegisterRoutes(orders)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
