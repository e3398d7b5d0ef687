package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type AddressInput struct {
	Street string `json:"street" validate:"omitempty,max=200"`
	City   string `json:"city" validate:"required,notblank,max=100"`
	State  string `json:"state" validate:"required,notblank,max=50"`
	Zip    string `json:"zip" validate:"omitempty,max=10"`
}

type MatchRequest struct {
	ProjectID   uuid.UUID    `json:"projectId" validate:"required"`
	Address     AddressInput `json:"address" validate:"required"`
	Urgency     *string      `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	BudgetRange *string      `json:"budgetRange,omitempty" validate:"omitempty,max=50"`
}

type ListMatchesRequest struct {
	ProjectID string `form:"projectId" validate:"required,uuid"`
}

// Response DTOs

type CoordinatesResponse struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
	Precision        string  `json:"precision"`
}

// MatchResponse reports a matching run. Zero matches, or an address that
// could not be located, is still a successful run.
type MatchResponse struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	MatchCount  int                  `json:"matchCount"`
	Skills      []string             `json:"skills"`
	Coordinates *CoordinatesResponse `json:"coordinates,omitempty"`
}

type ContractorSummary struct {
	ID              uuid.UUID `json:"id"`
	BusinessName    string    `json:"businessName"`
	Phone           *string   `json:"phone,omitempty"`
	Skills          []string  `json:"skills"`
	Rating          float64   `json:"rating"`
	YearsExperience int       `json:"yearsExperience"`
	IsVerified      bool      `json:"isVerified"`
}

type MatchItem struct {
	ID            uuid.UUID         `json:"id"`
	ProjectID     uuid.UUID         `json:"projectId"`
	MatchScore    float64           `json:"matchScore"`
	DistanceMiles *float64          `json:"distanceMiles,omitempty"`
	Status        string            `json:"status"`
	ProposedCost  *float64          `json:"proposedCost,omitempty"`
	Contractor    ContractorSummary `json:"contractor"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type MatchListResponse struct {
	Items []MatchItem `json:"items"`
}
