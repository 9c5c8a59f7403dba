// Package statusflow provides the status workflow domain module: the
// transition graph, the append-only status history and the reversion
// service shared by diligences and payments.
package statusflow

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"jurisconnect_backend/internal/events"
	apphttp "jurisconnect_backend/internal/http"
	"jurisconnect_backend/internal/statusflow/handler"
	"jurisconnect_backend/internal/statusflow/repository"
	"jurisconnect_backend/internal/statusflow/service"
	"jurisconnect_backend/platform/logger"
)

// Module represents the status workflow domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    repository.Repository
}

// NewModule creates a new statusflow module with all dependencies wired.
// The repository and service are exported because the diligences and
// payments modules route their mutations through this module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "statusflow"
}

// RegisterRoutes registers the module's routes under /api/v1/status
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	status := ctx.Protected.Group("/status")
	m.handler.RegisterRoutes(status)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
