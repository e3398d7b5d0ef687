package maps

import (
	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"
)

// Module wires geocoding and the address lookup HTTP routes.
type Module struct {
	resolver *Resolver
	handler  *Handler
}

func NewModule(cfg config.GeocodingConfig, log *logger.Logger) (*Module, error) {
	table, err := LoadCityTable()
	if err != nil {
		return nil, err
	}

	var client *NominatimClient
	opts := []ResolverOption{}
	if cfg.IsGeocoderEnabled() {
		client = NewNominatimClient(cfg, log)
		opts = append(opts, WithProvider(client))
	} else {
		log.Warn("GEOCODER_URL not configured; geocoding uses the city table only")
	}

	resolver := NewResolver(table, log, opts...)
	return &Module{
		resolver: resolver,
		handler:  NewHandler(resolver, client),
	}, nil
}

// Resolver exposes the geocoder to other modules.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/maps")
	group.GET("/geocode", m.handler.Geocode)
	group.GET("/address-lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
