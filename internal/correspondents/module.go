// Package correspondents provides the correspondent profile module and the
// matching service consumed by diligence assignment.
package correspondents

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jurisconnect_backend/internal/correspondents/handler"
	"jurisconnect_backend/internal/correspondents/matcher"
	"jurisconnect_backend/internal/correspondents/repository"
	"jurisconnect_backend/internal/correspondents/service"
	apphttp "jurisconnect_backend/internal/http"
	"jurisconnect_backend/platform/logger"
)

// Module represents the correspondents domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new correspondents module. redisClient may be nil;
// matching then always reads the database.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration, weights matcher.Weights, log *logger.Logger) *Module {
	repo := repository.New(pool)
	cache := repository.NewPoolCache(redisClient, cacheTTL, log)
	svc := service.New(repo, cache, weights, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "correspondents"
}

// RegisterRoutes registers the module's routes under /api/v1/correspondents
// and /api/v1/admin/correspondents
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/correspondents"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/correspondents"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
