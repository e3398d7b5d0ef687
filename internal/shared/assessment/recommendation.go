// Package assessment reads the recommendations an accessibility assessment
// produced. Assessments themselves are written by the analysis pipeline.
package assessment

import (
	"encoding/json"
	"strings"
)

// Recommendation is one suggested modification. Older assessments store
// recommendations as bare strings; both shapes decode into this type.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*r = Recommendation{Description: text}
		return nil
	}

	type plain Recommendation
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Recommendation(decoded)
	return nil
}

// Text is the lower-cased searchable text of the recommendation.
func (r Recommendation) Text() string {
	return strings.ToLower(strings.TrimSpace(r.Title + " " + r.Description))
}

// Label is the human-readable line for the recommendation.
func (r Recommendation) Label() string {
	if title := strings.TrimSpace(r.Title); title != "" {
		return title
	}
	return strings.TrimSpace(r.Description)
}

// Decode parses a recommendations JSON array.
func Decode(raw []byte) ([]Recommendation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var recs []Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
