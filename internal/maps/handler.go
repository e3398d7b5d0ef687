package maps

import (
	"errors"
	"net/http"

	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the geocoding and address lookup endpoints.
type Handler struct {
	resolver *Resolver
	lookup   *NominatimClient
}

func NewHandler(resolver *Resolver, lookup *NominatimClient) *Handler {
	return &Handler{resolver: resolver, lookup: lookup}
}

// Geocode handles GET /api/v1/maps/geocode?street=&city=&state=&zip=
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.ValidationError(c, "query parameters 'city' and 'state' are required", nil)
		return
	}

	coords, err := h.resolver.Resolve(c.Request.Context(), req.Address())
	if errors.Is(err, ErrNotFound) {
		httpkit.HandleError(c, apperr.NotFound("address could not be geocoded"))
		return
	}
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, coords)
}

// LookupAddress handles GET /api/v1/maps/address-lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	if h.lookup == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "LOOKUP_DISABLED", "address lookup is not configured", nil)
		return
	}

	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.ValidationError(c, "query 'q' is required (min 3 chars)", nil)
		return
	}

	results, err := h.lookup.SearchAddress(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "address lookup service unavailable", nil)
		return
	}

	httpkit.OK(c, results)
}
