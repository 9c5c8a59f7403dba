// Package payments provides the payments domain module: the two-party
// payment coordinator, payment proofs and the PIX charge endpoints.
package payments

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/events"
	apphttp "jurisconnect_backend/internal/http"
	"jurisconnect_backend/internal/payments/handler"
	"jurisconnect_backend/internal/payments/repository"
	"jurisconnect_backend/internal/payments/service"
	"jurisconnect_backend/platform/logger"
	"jurisconnect_backend/platform/validator"
)

// Module represents the payments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new payments module with all dependencies wired
func NewModule(pool *pgxpool.Pool, storage service.ProofStorage, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, storage, val, bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "payments"
}

// RegisterRoutes registers the module's routes under /api/v1/payments and
// /api/v1/admin/payments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/payments"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/payments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
