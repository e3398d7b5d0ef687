package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// ErrNoResults is returned by the provider when the address matched nothing.
var ErrNoResults = errors.New("geocoder returned no results")

// Provider geocodes a single-line address.
type Provider interface {
	Geocode(ctx context.Context, query string) (Coordinates, error)
}

// NominatimClient talks to an OSM Nominatim search endpoint. Concurrent
// lookups of the same query share one upstream request.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	group     singleflight.Group
	log       *logger.Logger
}

func NewNominatimClient(cfg config.GeocodingConfig, log *logger.Logger) *NominatimClient {
	baseURL := strings.TrimSpace(cfg.GetGeocoderURL())
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: cfg.GetGeocoderUserAgent(),
		client:    &http.Client{Timeout: 5 * time.Second},
		log:       log,
	}
}

// Geocode returns the best match for query.
func (n *NominatimClient) Geocode(ctx context.Context, query string) (Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Coordinates{}, ErrNoResults
	}

	v, err, _ := n.group.Do(query, func() (interface{}, error) {
		results, err := n.search(ctx, query, 1)
		if err != nil {
			return Coordinates{}, err
		}
		if len(results) == 0 {
			return Coordinates{}, ErrNoResults
		}
		return toCoordinates(results[0])
	})
	if err != nil {
		return Coordinates{}, err
	}
	return v.(Coordinates), nil
}

// SearchAddress returns up to five street-level suggestions for query.
func (n *NominatimClient) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	results, err := n.search(ctx, query, 5)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(results))
	for _, raw := range results {
		if suggestion, ok := buildSuggestion(raw); ok {
			suggestions = append(suggestions, suggestion)
		}
	}
	return suggestions, nil
}

func (n *NominatimClient) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("countrycodes", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim upstream error: %d", resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim payload: %w", err)
	}
	return results, nil
}

func toCoordinates(raw nominatimResponse) (Coordinates, error) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse latitude %q: %w", raw.Lat, err)
	}
	lng, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse longitude %q: %w", raw.Lon, err)
	}
	return Coordinates{
		Lat:              lat,
		Lng:              lng,
		FormattedAddress: raw.DisplayName,
		Precision:        PrecisionExact,
	}, nil
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}
	city := firstNonEmpty(raw.Address.City, raw.Address.Town, raw.Address.Village, raw.Address.Hamlet)
	if city == "" {
		return AddressSuggestion{}, false
	}

	s := AddressSuggestion{
		Street:      raw.Address.Road,
		HouseNumber: raw.Address.HouseNumber,
		ZipCode:     raw.Address.Postcode,
		City:        city,
		State:       raw.Address.State,
		Lat:         raw.Lat,
		Lon:         raw.Lon,
	}

	// US order: "12 Main St, Springfield, IL 62701"
	line := strings.TrimSpace(s.HouseNumber + " " + s.Street)
	region := strings.TrimSpace(s.State + " " + s.ZipCode)
	s.Label = Address{Street: line, City: s.City, State: region}.String()
	return s, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
