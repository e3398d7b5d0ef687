package maps

import "strings"

// Address is a postal address to resolve. Street and Zip are optional.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// String joins the address into the single-line query sent to the provider.
func (a Address) String() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{a.Street, a.City} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(a.State) + " " + strings.TrimSpace(a.Zip))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// Precision tells callers which resolution tier produced a coordinate.
type Precision string

const (
	PrecisionExact Precision = "exact"
	PrecisionCity  Precision = "city"
	PrecisionState Precision = "state"
)

// Coordinates is a resolved point.
type Coordinates struct {
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	FormattedAddress string    `json:"formattedAddress"`
	Precision        Precision `json:"precision"`
}

// GeocodeRequest represents the query parameters of the geocode endpoint.
type GeocodeRequest struct {
	Street string `form:"street"`
	City   string `form:"city" binding:"required"`
	State  string `form:"state" binding:"required"`
	Zip    string `form:"zip"`
}

func (r GeocodeRequest) Address() Address {
	return Address{Street: r.Street, City: r.City, State: r.State, Zip: r.Zip}
}

// LookupRequest represents the query parameters of the address autocomplete.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3"`
}

// AddressSuggestion is a normalized autocomplete hit.
type AddressSuggestion struct {
	Label       string `json:"label"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	ZipCode     string `json:"zipCode"`
	City        string `json:"city"`
	State       string `json:"state"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type nominatimAddress struct {
	Road        string `json:"road"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Hamlet      string `json:"hamlet"`
	State       string `json:"state"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
