// Package matching pairs homeowner projects with nearby contractors.
package matching

import (
	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/internal/matching/handler"
	"homeaccess_backend/internal/matching/repository"
	"homeaccess_backend/internal/matching/service"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, geocoder service.Geocoder, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), geocoder, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "matching"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/match"))
}

var _ apphttp.Module = (*Module)(nil)
