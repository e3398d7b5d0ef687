package service

import (
	"strings"

	"homeaccess_backend/internal/shared/assessment"
)

type skillRule struct {
	keywords []string
	skills   []string
}

// skillRules maps recommendation keywords to contractor skill tags. Tags
// must match the values stored in contractor_profiles.skills.
var skillRules = []skillRule{
	{keywords: []string{"grab bar"}, skills: []string{"Grab Bars", "Bathroom Safety"}},
	{keywords: []string{"ramp"}, skills: []string{"Wheelchair Ramps", "Ramp Installation"}},
	{keywords: []string{"walk-in shower", "shower", "tub"}, skills: []string{"Walk-in Showers", "Bathroom Remodeling"}},
	{keywords: []string{"toilet"}, skills: []string{"Bathroom Safety"}},
	{keywords: []string{"doorway", "widen"}, skills: []string{"Doorway Widening"}},
	{keywords: []string{"handrail", "railing"}, skills: []string{"Handrails"}},
	{keywords: []string{"stair lift", "stairlift"}, skills: []string{"Stair Lifts"}},
	{keywords: []string{"lighting", "light"}, skills: []string{"Lighting"}},
	{keywords: []string{"flooring", "floor", "slip"}, skills: []string{"Flooring", "Non-Slip Surfaces"}},
	{keywords: []string{"kitchen", "counter"}, skills: []string{"Kitchen Modifications"}},
	{keywords: []string{"lever", "handle"}, skills: []string{"Door Hardware"}},
}

// DeriveSkills returns the skill tags implied by the recommendations,
// deduplicated in order of first appearance.
func DeriveSkills(recs []assessment.Recommendation) []string {
	skills := make([]string, 0)
	seen := make(map[string]bool)
	for _, rec := range recs {
		text := rec.Text()
		if text == "" {
			continue
		}
		for _, rule := range skillRules {
			if !containsAny(text, rule.keywords) {
				continue
			}
			for _, skill := range rule.skills {
				if !seen[skill] {
					seen[skill] = true
					skills = append(skills, skill)
				}
			}
		}
	}
	return skills
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
