package repository

import (
	"context"
	"time"

	"homeaccess_backend/internal/shared/assessment"

	"github.com/google/uuid"
)

type ProposalsRepository interface {
	GetMatch(ctx context.Context, id uuid.UUID) (Match, error)
	GetRecommendations(ctx context.Context, assessmentID uuid.UUID) ([]assessment.Recommendation, error)
	GetByID(ctx context.Context, id uuid.UUID) (Proposal, error)
	CreateSent(ctx context.Context, params SendParams) (Proposal, error)
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (Proposal, error)
	ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (Proposal, error)
	ExpireStale(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	Respond(ctx context.Context, id uuid.UUID, accept bool, now time.Time) (RespondResult, error)
}

var _ ProposalsRepository = (*Repository)(nil)
