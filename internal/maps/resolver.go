package maps

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"homeaccess_backend/platform/logger"
)

// ErrNotFound is returned when no tier could place the address.
var ErrNotFound = errors.New("address could not be geocoded")

// Maximum per-axis offsets, in degrees, applied to table coordinates so
// approximated projects do not stack on one point.
const (
	cityJitter  = 0.025
	stateJitter = 0.05
)

// Resolver places an address using the provider first, then the city
// table, then any city in the same state.
type Resolver struct {
	provider Provider
	table    *CityTable
	log      *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type ResolverOption func(*Resolver)

// WithProvider enables the external lookup tier.
func WithProvider(p Provider) ResolverOption {
	return func(r *Resolver) { r.provider = p }
}

// WithRand sets the jitter source.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

func NewResolver(table *CityTable, log *logger.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		table: table,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns coordinates for addr or ErrNotFound. Provider failures are
// logged and fall through to the table tiers.
func (r *Resolver) Resolve(ctx context.Context, addr Address) (Coordinates, error) {
	if r.provider != nil {
		coords, err := r.provider.Geocode(ctx, addr.String())
		if err == nil {
			coords.Precision = PrecisionExact
			return coords, nil
		}
		r.log.Warn("geocoding provider miss, using city table", "error", err, "city", addr.City, "state", addr.State)
	}

	if city, ok := r.table.Lookup(addr.City, addr.State); ok {
		return r.approximate(city, city.City, cityJitter, PrecisionCity), nil
	}

	if city, ok := r.table.AnyInState(addr.State); ok {
		label := strings.TrimSpace(addr.City)
		if label == "" {
			label = city.City
		}
		return r.approximate(city, label, stateJitter, PrecisionState), nil
	}

	return Coordinates{}, ErrNotFound
}

func (r *Resolver) approximate(city City, label string, maxOffset float64, precision Precision) Coordinates {
	r.mu.Lock()
	dLat := (r.rng.Float64()*2 - 1) * maxOffset
	dLng := (r.rng.Float64()*2 - 1) * maxOffset
	r.mu.Unlock()

	return Coordinates{
		Lat:              city.Lat + dLat,
		Lng:              city.Lng + dLng,
		FormattedAddress: label + ", " + city.State,
		Precision:        precision,
	}
}
