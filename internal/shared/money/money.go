// Package money converts between API dollar amounts and stored cents.
package money

import "math"

// CentsFromDollars rounds a dollar amount to the nearest cent.
func CentsFromDollars(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

// DollarsFromCents converts cents to a dollar amount.
func DollarsFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// OptionalCents converts an optional dollar amount.
func OptionalCents(dollars *float64) *int64 {
	if dollars == nil {
		return nil
	}
	cents := CentsFromDollars(*dollars)
	return &cents
}

// OptionalDollars converts optional cents.
func OptionalDollars(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	dollars := DollarsFromCents(*cents)
	return &dollars
}
