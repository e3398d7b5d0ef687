package repository

import (
	"context"

	"homeaccess_backend/internal/shared/assessment"

	"github.com/google/uuid"
)

// MatchingRepository is everything the matching service persists or reads.
type MatchingRepository interface {
	GetProject(ctx context.Context, id uuid.UUID) (Project, error)
	OpenForBids(ctx context.Context, id uuid.UUID, loc LocationUpdate) error
	MarkMatchingComplete(ctx context.Context, id uuid.UUID) error
	GetRecommendations(ctx context.Context, assessmentID uuid.UUID) ([]assessment.Recommendation, error)
	FindMatches(ctx context.Context, projectID uuid.UUID, skills []string) ([]Candidate, error)
	ListMatches(ctx context.Context, projectID uuid.UUID) ([]Match, error)
}

var _ MatchingRepository = (*Repository)(nil)
