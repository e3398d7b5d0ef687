package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// LineItemInput is one line of a proposal as edited by the contractor.
// Quantity defaults to 1 and Included to true.
type LineItemInput struct {
	Description        string  `json:"description" validate:"required,notblank,max=300"`
	Quantity           int     `json:"quantity" validate:"omitempty,min=1,max=1000"`
	UnitPrice          float64 `json:"unitPrice" validate:"gte=0,lte=1000000"`
	FromRecommendation bool    `json:"fromRecommendation"`
	Included           *bool   `json:"included,omitempty"`
}

type DraftRequest struct {
	MatchID uuid.UUID `json:"matchId" validate:"required"`
}

type SendProposalRequest struct {
	MatchID           uuid.UUID       `json:"matchId" validate:"required"`
	LineItems         []LineItemInput `json:"lineItems" validate:"required,min=1,max=100,dive"`
	EstimatedDuration *string         `json:"estimatedDuration,omitempty" validate:"omitempty,max=100"`
	Notes             *string         `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// Response DTOs

type LineItemResponse struct {
	Description        string  `json:"description"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unitPrice"`
	Total              float64 `json:"total"`
	FromRecommendation bool    `json:"fromRecommendation"`
	Included           bool    `json:"included"`
}

type DraftResponse struct {
	MatchID   uuid.UUID          `json:"matchId"`
	LineItems []LineItemResponse `json:"lineItems"`
	Total     float64            `json:"total"`
}

type ProposalResponse struct {
	ID                uuid.UUID          `json:"id"`
	MatchID           uuid.UUID          `json:"matchId"`
	ProjectID         uuid.UUID          `json:"projectId"`
	ContractorID      uuid.UUID          `json:"contractorId"`
	HomeownerID       uuid.UUID          `json:"homeownerId"`
	LineItems         []LineItemResponse `json:"lineItems"`
	Total             float64            `json:"total"`
	TotalCents        int64              `json:"totalCents"`
	EstimatedDuration *string            `json:"estimatedDuration,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
	Status            string             `json:"status"`
	ValidUntil        time.Time          `json:"validUntil"`
	SentAt            *time.Time         `json:"sentAt,omitempty"`
	ViewedAt          *time.Time         `json:"viewedAt,omitempty"`
	RespondedAt       *time.Time         `json:"respondedAt,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}
