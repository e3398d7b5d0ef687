// Package leads provides the lead marketplace bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"homeaccess_backend/internal/events"
	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/internal/leads/handler"
	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/internal/leads/service"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.MarketplaceConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service so other modules and workers can attach
// ports (preview signing, view tracking) or drive the lock sweep.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/leads")
	if ctx.PublicLimiter != nil {
		public.Use(ctx.PublicLimiter.RateLimit())
	}
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"), ctx.Idempotency)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
