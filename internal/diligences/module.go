// Package diligences provides the diligence domain module: creation,
// listing, forward transitions and correspondent assignment.
package diligences

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/diligences/handler"
	"jurisconnect_backend/internal/diligences/repository"
	"jurisconnect_backend/internal/diligences/service"
	"jurisconnect_backend/internal/events"
	apphttp "jurisconnect_backend/internal/http"
	"jurisconnect_backend/platform/logger"
)

// Module represents the diligences domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new diligences module with all dependencies wired.
// flow and matcher come from the statusflow and correspondents modules.
func NewModule(pool *pgxpool.Pool, flow service.Transitioner, matcher service.Matcher, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, flow, matcher, bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "diligences"
}

// RegisterRoutes registers the module's routes under /api/v1/diligences and
// /api/v1/admin/diligences
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/diligences"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/diligences"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
