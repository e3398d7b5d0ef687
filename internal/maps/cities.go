package maps

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var citiesYAML []byte

// City is one row of the static major-city table.
type City struct {
	City  string  `yaml:"city"`
	State string  `yaml:"state"`
	Lat   float64 `yaml:"lat"`
	Lng   float64 `yaml:"lng"`
}

type cityFile struct {
	States map[string]string `yaml:"states"`
	Cities []City            `yaml:"cities"`
}

// CityTable answers "city,state" and state-only lookups against the
// embedded table. State may be given as a USPS code or a full name.
type CityTable struct {
	byCityState  map[string]City
	firstInState map[string]City
	stateCodes   map[string]string
	size         int
}

// LoadCityTable parses the embedded table.
func LoadCityTable() (*CityTable, error) {
	return ParseCityTable(citiesYAML)
}

// ParseCityTable builds a table from YAML.
func ParseCityTable(raw []byte) (*CityTable, error) {
	var file cityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse city table: %w", err)
	}

	t := &CityTable{
		byCityState:  make(map[string]City, len(file.Cities)),
		firstInState: make(map[string]City),
		stateCodes:   make(map[string]string, len(file.States)),
		size:         len(file.Cities),
	}
	for name, code := range file.States {
		t.stateCodes[strings.ToLower(strings.TrimSpace(name))] = strings.ToUpper(code)
	}
	for _, c := range file.Cities {
		c.State = strings.ToUpper(strings.TrimSpace(c.State))
		key := cityKey(c.City, c.State)
		if _, dup := t.byCityState[key]; dup {
			return nil, fmt.Errorf("parse city table: duplicate entry %q", key)
		}
		t.byCityState[key] = c
		if _, seen := t.firstInState[c.State]; !seen {
			t.firstInState[c.State] = c
		}
	}
	return t, nil
}

// Len reports the number of cities in the table.
func (t *CityTable) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Lookup finds the exact city within state, case-insensitively.
func (t *CityTable) Lookup(city, state string) (City, bool) {
	if t == nil || strings.TrimSpace(city) == "" {
		return City{}, false
	}
	c, ok := t.byCityState[cityKey(city, t.StateCode(state))]
	return c, ok
}

// AnyInState returns the first listed city of state.
func (t *CityTable) AnyInState(state string) (City, bool) {
	if t == nil {
		return City{}, false
	}
	c, ok := t.firstInState[t.StateCode(state)]
	return c, ok
}

// StateCode maps "Texas", "texas" or "tx" to "TX". Unknown names are
// upper-cased as given.
func (t *CityTable) StateCode(state string) string {
	trimmed := strings.TrimSpace(state)
	if code, ok := t.stateCodes[strings.ToLower(trimmed)]; ok {
		return code
	}
	return strings.ToUpper(trimmed)
}

func cityKey(city, stateCode string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "," + strings.ToLower(stateCode)
}
