package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeaccess_backend/internal/leads/domain"
	"homeaccess_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrScanNotFound    = errors.New("scan not found")
	ErrProjectNotFound = errors.New("project not found")

	// ErrConditionFailed is returned when a conditional write matched no row
	// because the lead was not in the expected state.
	ErrConditionFailed = errors.New("lead not in expected state")
)

const (
	uniqueViolation       = "23505"
	fingerprintConstraint = "leads_fingerprint_key"
	projectConstraint     = "leads_project_id_key"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                        uuid.UUID
	HomeownerID               uuid.UUID
	ProjectID                 *uuid.UUID
	ScanID                    *uuid.UUID
	AssessmentID              *uuid.UUID
	Fingerprint               string
	Title                     string
	Location                  string
	Scope                     *string
	Tags                      []string
	ScopeTags                 []string
	PriceCents                int64
	ProjectValueCents         *int64
	PreviewImage              *string
	AccessibilityScore        *int
	Status                    domain.Status
	ViewCount                 int
	CurrentStage              *string
	Progress                  int
	LockedByID                *uuid.UUID
	LockIdempotencyKey        *string
	LockedAt                  *time.Time
	PurchasedAt               *time.Time
	PaymentIntentID           *string
	LastPaymentWebhookEventID *string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type CreateLeadParams struct {
	HomeownerID        uuid.UUID
	ProjectID          *uuid.UUID
	ScanID             *uuid.UUID
	AssessmentID       *uuid.UUID
	Fingerprint        string
	Title              string
	Location           string
	Scope              *string
	Tags               []string
	ScopeTags          []string
	PriceCents         int64
	ProjectValueCents  *int64
	PreviewImage       *string
	AccessibilityScore *int
}

type ListParams struct {
	Limit  int
	Offset int
}

// ReleasedLock identifies a lock removed by the expiry sweep.
type ReleasedLock struct {
	LeadID       uuid.UUID
	ContractorID uuid.UUID
}

const leadColumns = `
	id, homeowner_id, project_id, scan_id, assessment_id, fingerprint, title, location, scope,
	tags, scope_tags, price_cents, project_value_cents, preview_image, accessibility_score,
	status, view_count, current_stage, progress, locked_by_id, lock_idempotency_key, locked_at,
	purchased_at, payment_intent_id, last_payment_webhook_event_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	var status string
	err := row.Scan(
		&l.ID, &l.HomeownerID, &l.ProjectID, &l.ScanID, &l.AssessmentID, &l.Fingerprint, &l.Title, &l.Location, &l.Scope,
		&l.Tags, &l.ScopeTags, &l.PriceCents, &l.ProjectValueCents, &l.PreviewImage, &l.AccessibilityScore,
		&status, &l.ViewCount, &l.CurrentStage, &l.Progress, &l.LockedByID, &l.LockIdempotencyKey, &l.LockedAt,
		&l.PurchasedAt, &l.PaymentIntentID, &l.LastPaymentWebhookEventID, &l.CreatedAt, &l.UpdatedAt,
	)
	l.Status = domain.Status(status)
	return l, err
}

// Create inserts a lead. A fingerprint collision surfaces as DUPLICATE_LEAD;
// the unique index is the only duplicate check.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	scopeTags := params.ScopeTags
	if scopeTags == nil {
		scopeTags = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			homeowner_id, project_id, scan_id, assessment_id, fingerprint, title, location, scope,
			tags, scope_tags, price_cents, project_value_cents, preview_image, accessibility_score, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'AVAILABLE')
		RETURNING `+leadColumns,
		params.HomeownerID, params.ProjectID, params.ScanID, params.AssessmentID, params.Fingerprint,
		params.Title, params.Location, params.Scope, tags, scopeTags, params.PriceCents,
		params.ProjectValueCents, params.PreviewImage, params.AccessibilityScore,
	)

	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case fingerprintConstraint:
				return Lead{}, apperr.Conflict("a lead for this scan or listing already exists").
					WithCode(apperr.CodeDuplicateLead)
			case projectConstraint:
				return Lead{}, apperr.Conflict("this project already has a lead").
					WithCode(apperr.CodeDuplicateLead)
			}
		}
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// ListAvailable returns AVAILABLE leads, newest first.
func (r *Repository) ListAvailable(ctx context.Context, params ListParams) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'AVAILABLE'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list available leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// UpdateStatus applies from -> to only if the lead is still in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $3,
		    progress = CASE WHEN $3 = 'COMPLETED' THEN 100 ELSE progress END,
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns, id, string(from), string(to))
	return r.conditional(ctx, id, row)
}

// Lock claims an AVAILABLE lead for contractorID.
func (r *Repository) Lock(ctx context.Context, id, contractorID uuid.UUID, idempotencyKey *string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'LOCKED',
		    locked_by_id = $2,
		    lock_idempotency_key = $3,
		    locked_at = now(),
		    updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE'
		RETURNING `+leadColumns, id, contractorID, idempotencyKey)
	return r.conditional(ctx, id, row)
}

// Purchase converts contractorID's lock into a purchase if it was taken
// after lockedAfter. locked_by_id stays as the purchaser reference.
func (r *Repository) Purchase(ctx context.Context, id, contractorID uuid.UUID, lockedAfter time.Time, paymentReference *string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'PURCHASED',
		    purchased_at = now(),
		    lock_idempotency_key = NULL,
		    locked_at = NULL,
		    payment_intent_id = COALESCE($4, payment_intent_id),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'LOCKED'
		  AND locked_by_id = $2
		  AND locked_at > $3
		RETURNING `+leadColumns, id, contractorID, lockedAfter, paymentReference)
	return r.conditional(ctx, id, row)
}

// ReleaseLock returns a lead held by contractorID to AVAILABLE.
func (r *Repository) ReleaseLock(ctx context.Context, id, contractorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'AVAILABLE',
		    locked_by_id = NULL,
		    lock_idempotency_key = NULL,
		    locked_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND status = 'LOCKED' AND locked_by_id = $2
		RETURNING `+leadColumns, id, contractorID)
	return r.conditional(ctx, id, row)
}

// ReleaseExpiredLocks returns every lead locked before cutoff to AVAILABLE.
func (r *Repository) ReleaseExpiredLocks(ctx context.Context, cutoff time.Time) ([]ReleasedLock, error) {
	rows, err := r.pool.Query(ctx, `
		WITH stale AS (
			SELECT id, locked_by_id
			FROM leads
			WHERE status = 'LOCKED' AND locked_at < $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l
		SET status = 'AVAILABLE',
		    locked_by_id = NULL,
		    lock_idempotency_key = NULL,
		    locked_at = NULL,
		    updated_at = now()
		FROM stale
		WHERE l.id = stale.id AND l.status = 'LOCKED'
		RETURNING l.id, stale.locked_by_id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("release expired locks: %w", err)
	}
	defer rows.Close()

	released := make([]ReleasedLock, 0)
	for rows.Next() {
		var rl ReleasedLock
		if err := rows.Scan(&rl.LeadID, &rl.ContractorID); err != nil {
			return nil, fmt.Errorf("scan released lock: %w", err)
		}
		released = append(released, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate released locks: %w", err)
	}
	return released, nil
}

func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceMatchOnPurchase moves the purchaser's match on the lead's project to
// lead_purchased.
func (r *Repository) AdvanceMatchOnPurchase(ctx context.Context, projectID, contractorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE project_matches
		SET status = 'lead_purchased', updated_at = now()
		WHERE project_id = $1 AND contractor_id = $2 AND status = 'matched'`, projectID, contractorID)
	if err != nil {
		return fmt.Errorf("advance match on purchase: %w", err)
	}
	return nil
}

// conditional resolves the outcome of an UPDATE ... RETURNING: no row means
// either the lead does not exist or it was not in the required state.
func (r *Repository) conditional(ctx context.Context, id uuid.UUID, row pgx.Row) (Lead, error) {
	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, fmt.Errorf("conditional lead update: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Lead{}, fmt.Errorf("check lead exists: %w", err)
	}
	if !exists {
		return Lead{}, ErrNotFound
	}
	return Lead{}, ErrConditionFailed
}
