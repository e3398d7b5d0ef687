package repository

import (
	"context"
	"errors"
	"time"

	"homeaccess_backend/internal/shared/assessment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectClosed is returned when matching is requested for a project
	// that already has proposals or work under way.
	ErrProjectClosed = errors.New("project no longer accepts matching")
)

// Project statuses.
const (
	ProjectStatusDraft             = "draft"
	ProjectStatusOpenForBids       = "open_for_bids"
	ProjectStatusMatchingComplete  = "matching_complete"
	ProjectStatusProposalsReceived = "proposals_received"
	ProjectStatusInProgress        = "in_progress"
	ProjectStatusCompleted         = "completed"
)

type Project struct {
	ID               uuid.UUID
	HomeownerID      uuid.UUID
	AssessmentID     *uuid.UUID
	Title            string
	Status           string
	Latitude         *float64
	Longitude        *float64
	FormattedAddress *string
	Urgency          *string
	BudgetRange      *string
}

// AcceptsMatching reports whether matching may (re)run for the project.
// Once proposals arrive the candidate set is frozen.
func (p Project) AcceptsMatching() bool {
	switch p.Status {
	case ProjectStatusDraft, ProjectStatusOpenForBids, ProjectStatusMatchingComplete:
		return true
	}
	return false
}

// LocationUpdate is the resolved location written when bidding opens.
type LocationUpdate struct {
	Street           string
	City             string
	State            string
	Zip              string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	Urgency          *string
	BudgetRange      *string
}

// Candidate is a ranked row from find_contractor_matches.
type Candidate struct {
	MatchID       uuid.UUID
	ContractorID  uuid.UUID
	MatchScore    float64
	DistanceMiles *float64
}

// Match is a project match joined with the contractor's profile.
type Match struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	ContractorID      uuid.UUID
	MatchScore        float64
	DistanceMiles     *float64
	Status            string
	ProposedCostCents *int64
	CreatedAt         time.Time
	BusinessName      string
	Phone             *string
	Skills            []string
	Rating            float64
	YearsExperience   int
	IsVerified        bool
}

// MissingLocation is a project that has an address but no coordinates yet.
type MissingLocation struct {
	ID     uuid.UUID
	Street *string
	City   *string
	State  *string
	Zip    *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		SELECT id, homeowner_id, assessment_id, title, status, latitude, longitude,
			formatted_address, urgency, budget_range
		FROM projects WHERE id = $1`, id).Scan(
		&p.ID, &p.HomeownerID, &p.AssessmentID, &p.Title, &p.Status, &p.Latitude, &p.Longitude,
		&p.FormattedAddress, &p.Urgency, &p.BudgetRange,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	}
	return p, err
}

// OpenForBids stores the resolved location and opens the project for bids.
// Urgency and budget keep their previous values when not supplied. Projects
// past matching_complete are left untouched and yield ErrProjectClosed.
func (r *Repository) OpenForBids(ctx context.Context, id uuid.UUID, loc LocationUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects SET
			address_street = NULLIF($2, ''),
			address_city = $3,
			address_state = $4,
			address_zip = NULLIF($5, ''),
			formatted_address = $6,
			latitude = $7,
			longitude = $8,
			urgency = COALESCE($9, urgency),
			budget_range = COALESCE($10, budget_range),
			status = 'open_for_bids',
			updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'open_for_bids', 'matching_complete')`,
		id, loc.Street, loc.City, loc.State, loc.Zip, loc.FormattedAddress,
		loc.Latitude, loc.Longitude, loc.Urgency, loc.BudgetRange,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrClosed(ctx, id)
	}
	return nil
}

func (r *Repository) missingOrClosed(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrProjectNotFound
	}
	return ErrProjectClosed
}

// SetLocation stores coordinates without touching the project status.
func (r *Repository) SetLocation(ctx context.Context, id uuid.UUID, lat, lng float64, formatted string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects SET latitude = $2, longitude = $3, formatted_address = $4, updated_at = now()
		WHERE id = $1`, id, lat, lng, formatted)
	return err
}

// MarkMatchingComplete advances an open project once it has matches.
func (r *Repository) MarkMatchingComplete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE projects SET status = 'matching_complete', updated_at = now()
		WHERE id = $1 AND status = 'open_for_bids'`, id)
	return err
}

// GetRecommendations reads the recommendations of an assessment. A missing
// assessment yields no recommendations.
func (r *Repository) GetRecommendations(ctx context.Context, assessmentID uuid.UUID) ([]assessment.Recommendation, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT recommendations FROM assessments WHERE id = $1`, assessmentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return assessment.Decode(raw)
}

// FindMatches runs the contractor-matching function. An empty skill set
// means no skill filter.
func (r *Repository) FindMatches(ctx context.Context, projectID uuid.UUID, skills []string) ([]Candidate, error) {
	var skillArg []string
	if len(skills) > 0 {
		skillArg = skills
	}

	rows, err := r.pool.Query(ctx, `
		SELECT match_id, contractor_id, match_score::float8, distance_miles::float8
		FROM find_contractor_matches($1, $2)`, projectID, skillArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.MatchID, &c.ContractorID, &c.MatchScore, &c.DistanceMiles); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *Repository) ListMatches(ctx context.Context, projectID uuid.UUID) ([]Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.project_id, m.contractor_id, m.match_score::float8, m.distance_miles::float8,
			m.status, m.proposed_cost_cents, m.created_at,
			cp.business_name, cp.phone, cp.skills, cp.rating::float8, cp.years_experience, cp.is_verified
		FROM project_matches m
		JOIN contractor_profiles cp ON cp.user_id = m.contractor_id
		WHERE m.project_id = $1
		ORDER BY m.match_score DESC, m.created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID, &m.ProjectID, &m.ContractorID, &m.MatchScore, &m.DistanceMiles,
			&m.Status, &m.ProposedCostCents, &m.CreatedAt,
			&m.BusinessName, &m.Phone, &m.Skills, &m.Rating, &m.YearsExperience, &m.IsVerified,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListMissingLocation returns projects with a city and state but no
// coordinates, oldest first.
func (r *Repository) ListMissingLocation(ctx context.Context, limit int) ([]MissingLocation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, address_street, address_city, address_state, address_zip
		FROM projects
		WHERE (latitude IS NULL OR longitude IS NULL)
			AND address_city IS NOT NULL AND address_state IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MissingLocation, 0)
	for rows.Next() {
		var p MissingLocation
		if err := rows.Scan(&p.ID, &p.Street, &p.City, &p.State, &p.Zip); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
