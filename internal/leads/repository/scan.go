package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Scan is the provenance record a lead may be created from.
type Scan struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	AssessmentID       *uuid.UUID
	AccessibilityScore *int
	CreatedAt          time.Time
}

func (r *Repository) GetScan(ctx context.Context, id uuid.UUID) (Scan, error) {
	var s Scan
	err := r.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.assessment_id, a.accessibility_score, s.created_at
		FROM scan_sessions s
		LEFT JOIN assessments a ON a.id = s.assessment_id
		WHERE s.id = $1`, id).Scan(&s.ID, &s.OwnerID, &s.AssessmentID, &s.AccessibilityScore, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Scan{}, ErrScanNotFound
	}
	if err != nil {
		return Scan{}, fmt.Errorf("get scan: %w", err)
	}
	return s, nil
}

// ProjectOwner is the slice of a project the leads service needs to attach
// a lead to it.
type ProjectOwner struct {
	ID          uuid.UUID
	HomeownerID uuid.UUID
}

func (r *Repository) GetProjectOwner(ctx context.Context, id uuid.UUID) (ProjectOwner, error) {
	var p ProjectOwner
	err := r.pool.QueryRow(ctx, `SELECT id, homeowner_id FROM projects WHERE id = $1`, id).Scan(&p.ID, &p.HomeownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProjectOwner{}, ErrProjectNotFound
	}
	if err != nil {
		return ProjectOwner{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}
