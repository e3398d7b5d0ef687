// Package proposals provides the proposal negotiation bounded context module.
package proposals

import (
	"homeaccess_backend/internal/events"
	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/internal/proposals/handler"
	"homeaccess_backend/internal/proposals/repository"
	"homeaccess_backend/internal/proposals/service"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.MarketplaceConfig, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "proposals"
}

// Service exposes the negotiation service to the expiry sweep.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/proposals"), ctx.Idempotency)
}

var _ apphttp.Module = (*Module)(nil)
