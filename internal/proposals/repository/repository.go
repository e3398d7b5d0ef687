package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homeaccess_backend/internal/shared/assessment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrMatchNotFound    = errors.New("match not found")
	// ErrConditionFailed means the row exists but is no longer in the expected status.
	ErrConditionFailed = errors.New("proposal state changed")
)

// Proposal statuses.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusViewed   = "viewed"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

// Match statuses touched by the negotiation.
const (
	MatchStatusMatched          = "matched"
	MatchStatusLeadPurchased    = "lead_purchased"
	MatchStatusProposalSent     = "proposal_sent"
	MatchStatusProposalAccepted = "proposal_accepted"
	MatchStatusProposalRejected = "proposal_rejected"
	MatchStatusDeclined         = "declined"
)

// LineItem is a stored proposal line. Amounts are in cents.
type LineItem struct {
	Description        string `json:"description"`
	Quantity           int    `json:"quantity"`
	UnitPriceCents     int64  `json:"unitPriceCents"`
	TotalCents         int64  `json:"totalCents"`
	FromRecommendation bool   `json:"fromRecommendation"`
	Included           bool   `json:"included"`
}

type Proposal struct {
	ID                uuid.UUID
	MatchID           uuid.UUID
	ProjectID         uuid.UUID
	ContractorID      uuid.UUID
	HomeownerID       uuid.UUID
	LineItems         []LineItem
	TotalCents        int64
	EstimatedDuration *string
	Notes             *string
	Status            string
	ValidUntil        time.Time
	SentAt            *time.Time
	ViewedAt          *time.Time
	RespondedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Match is the project match a proposal is written against.
type Match struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	ContractorID uuid.UUID
	HomeownerID  uuid.UUID
	AssessmentID *uuid.UUID
	Status       string
}

type SendParams struct {
	MatchID           uuid.UUID
	ProjectID         uuid.UUID
	ContractorID      uuid.UUID
	HomeownerID       uuid.UUID
	LineItems         []LineItem
	TotalCents        int64
	EstimatedDuration *string
	Notes             *string
	SentAt            time.Time
	ValidUntil        time.Time
}

// DeclinedMatch is a sibling match closed when another proposal was accepted.
type DeclinedMatch struct {
	MatchID      uuid.UUID
	ContractorID uuid.UUID
}

type RespondResult struct {
	Proposal Proposal
	Declined []DeclinedMatch
}

const proposalColumns = `id, match_id, project_id, contractor_id, homeowner_id, line_items, total_cents,
	estimated_duration, notes, status, valid_until, sent_at, viewed_at, responded_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProposal(row pgx.Row) (Proposal, error) {
	var p Proposal
	var items []byte
	if err := row.Scan(
		&p.ID, &p.MatchID, &p.ProjectID, &p.ContractorID, &p.HomeownerID, &items, &p.TotalCents,
		&p.EstimatedDuration, &p.Notes, &p.Status, &p.ValidUntil, &p.SentAt, &p.ViewedAt, &p.RespondedAt,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return Proposal{}, err
	}
	if err := json.Unmarshal(items, &p.LineItems); err != nil {
		return Proposal{}, fmt.Errorf("decode line items: %w", err)
	}
	return p, nil
}

func (r *Repository) GetMatch(ctx context.Context, id uuid.UUID) (Match, error) {
	var m Match
	err := r.pool.QueryRow(ctx, `
		SELECT m.id, m.project_id, m.contractor_id, p.homeowner_id, p.assessment_id, m.status
		FROM project_matches m
		JOIN projects p ON p.id = m.project_id
		WHERE m.id = $1`, id).Scan(&m.ID, &m.ProjectID, &m.ContractorID, &m.HomeownerID, &m.AssessmentID, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Match{}, ErrMatchNotFound
	}
	return m, err
}

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

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Proposal{}, ErrProposalNotFound
	}
	return p, err
}

// CreateSent inserts a sent proposal and moves its match to proposal_sent and
// its project to proposals_received in one transaction. The match must still
// be open for a proposal.
func (r *Repository) CreateSent(ctx context.Context, params SendParams) (Proposal, error) {
	items, err := json.Marshal(params.LineItems)
	if err != nil {
		return Proposal{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE project_matches
		SET status = 'proposal_sent', proposed_cost_cents = $2, updated_at = now()
		WHERE id = $1 AND status IN ('matched', 'lead_purchased')`, params.MatchID, params.TotalCents)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Proposal{}, ErrConditionFailed
	}

	proposal, err := scanProposal(tx.QueryRow(ctx, `
		INSERT INTO proposals (
			match_id, project_id, contractor_id, homeowner_id, line_items, total_cents,
			estimated_duration, notes, status, valid_until, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'sent', $9, $10)
		RETURNING `+proposalColumns,
		params.MatchID, params.ProjectID, params.ContractorID, params.HomeownerID, items, params.TotalCents,
		params.EstimatedDuration, params.Notes, params.ValidUntil, params.SentAt,
	))
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to insert proposal: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE projects SET status = 'proposals_received', updated_at = now()
		WHERE id = $1 AND status IN ('open_for_bids', 'matching_complete')`, params.ProjectID); err != nil {
		return Proposal{}, fmt.Errorf("failed to update project: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

// MarkViewed moves a sent proposal to viewed. It returns ErrConditionFailed
// when the proposal is not in sent.
func (r *Repository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx, `
		UPDATE proposals SET status = 'viewed', viewed_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'sent'
		RETURNING `+proposalColumns, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Proposal{}, r.missingOr(ctx, id)
	}
	return p, err
}

// reopenExpiredMatches hands a match whose proposal expired back to the
// contractor: lead_purchased when they bought the project's lead, matched
// otherwise. It runs as a data-modifying CTE over an "expired" CTE.
const reopenExpiredMatches = `
	reopened AS (
		UPDATE project_matches m SET
			status = CASE WHEN EXISTS (
				SELECT 1 FROM leads l
				WHERE l.project_id = m.project_id AND l.locked_by_id = m.contractor_id AND l.purchased_at IS NOT NULL
			) THEN 'lead_purchased' ELSE 'matched' END,
			proposed_cost_cents = NULL,
			updated_at = now()
		FROM expired e
		WHERE m.id = e.match_id AND m.status = 'proposal_sent'
	)`

// ExpireOne expires an open proposal whose validity has passed and reopens
// its match for a new proposal.
func (r *Repository) ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (Proposal, error) {
	p, err := scanProposal(r.pool.QueryRow(ctx, `
		WITH expired AS (
			UPDATE proposals SET status = 'expired', updated_at = now()
			WHERE id = $1 AND status IN ('sent', 'viewed') AND valid_until <= $2
			RETURNING `+proposalColumns+`
		),`+reopenExpiredMatches+`
		SELECT `+proposalColumns+` FROM expired`, id, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Proposal{}, r.missingOr(ctx, id)
	}
	return p, err
}

// ExpireStale expires every open proposal past its validity, reopens their
// matches and returns the proposal ids.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		WITH expired AS (
			UPDATE proposals SET status = 'expired', updated_at = now()
			WHERE status IN ('sent', 'viewed') AND valid_until <= $1
			RETURNING id, match_id
		),`+reopenExpiredMatches+`
		SELECT id FROM expired`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Respond records the homeowner's answer. Acceptance also moves the project
// to in_progress, declines every other open match on the project and expires
// their open proposals, all in one transaction. The project row is locked
// first so concurrent answers on one project queue instead of deadlocking.
func (r *Repository) Respond(ctx context.Context, id uuid.UUID, accept bool, now time.Time) (RespondResult, error) {
	status, matchStatus := StatusRejected, MatchStatusProposalRejected
	if accept {
		status, matchStatus = StatusAccepted, MatchStatusProposalAccepted
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return RespondResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var projectStatus string
	err = tx.QueryRow(ctx, `
		SELECT p.status FROM projects p
		JOIN proposals pr ON pr.project_id = p.id
		WHERE pr.id = $1
		FOR UPDATE OF p`, id).Scan(&projectStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return RespondResult{}, ErrProposalNotFound
	}
	if err != nil {
		return RespondResult{}, fmt.Errorf("failed to lock project: %w", err)
	}
	if accept && (projectStatus == "in_progress" || projectStatus == "completed") {
		return RespondResult{}, ErrConditionFailed
	}

	proposal, err := scanProposal(tx.QueryRow(ctx, `
		UPDATE proposals SET status = $2, responded_at = $3, updated_at = now()
		WHERE id = $1 AND status IN ('sent', 'viewed') AND valid_until > $3
		RETURNING `+proposalColumns, id, status, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return RespondResult{}, r.missingOr(ctx, id)
	}
	if err != nil {
		return RespondResult{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE project_matches SET status = $2, updated_at = now() WHERE id = $1`,
		proposal.MatchID, matchStatus); err != nil {
		return RespondResult{}, fmt.Errorf("failed to update match: %w", err)
	}

	result := RespondResult{Proposal: proposal, Declined: []DeclinedMatch{}}
	if accept {
		if _, err := tx.Exec(ctx, `
			UPDATE projects SET status = 'in_progress', updated_at = now() WHERE id = $1`,
			proposal.ProjectID); err != nil {
			return RespondResult{}, fmt.Errorf("failed to update project: %w", err)
		}

		declined, err := declineSiblings(ctx, tx, proposal.ProjectID, proposal.MatchID)
		if err != nil {
			return RespondResult{}, err
		}
		result.Declined = declined

		if _, err := tx.Exec(ctx, `
			UPDATE proposals SET status = 'expired', updated_at = now()
			WHERE project_id = $1 AND id <> $2 AND status IN ('sent', 'viewed')`,
			proposal.ProjectID, proposal.ID); err != nil {
			return RespondResult{}, fmt.Errorf("failed to expire sibling proposals: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return RespondResult{}, err
	}
	return result, nil
}

func declineSiblings(ctx context.Context, tx pgx.Tx, projectID, acceptedMatchID uuid.UUID) ([]DeclinedMatch, error) {
	rows, err := tx.Query(ctx, `
		UPDATE project_matches SET status = 'declined', updated_at = now()
		WHERE project_id = $1 AND id <> $2 AND status NOT IN ('proposal_accepted', 'proposal_rejected', 'declined')
		RETURNING id, contractor_id`, projectID, acceptedMatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to decline sibling matches: %w", err)
	}
	defer rows.Close()

	declined := make([]DeclinedMatch, 0)
	for rows.Next() {
		var d DeclinedMatch
		if err := rows.Scan(&d.MatchID, &d.ContractorID); err != nil {
			return nil, err
		}
		declined = append(declined, d)
	}
	return declined, rows.Err()
}

func (r *Repository) missingOr(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM proposals WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrProposalNotFound
	}
	return ErrConditionFailed
}
