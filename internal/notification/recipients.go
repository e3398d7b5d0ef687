package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errRecipientNotFound = errors.New("recipient not found")

// Recipient is a user an email can be addressed to.
type Recipient struct {
	Email string
	Name  string
}

// RecipientReader resolves the people and project named by domain events.
type RecipientReader interface {
	GetUser(ctx context.Context, userID uuid.UUID) (Recipient, error)
	GetContractor(ctx context.Context, contractorID uuid.UUID) (Recipient, error)
	GetProjectTitle(ctx context.Context, projectID uuid.UUID) (string, error)
}

type recipientRepository struct {
	pool *pgxpool.Pool
}

func newRecipientRepository(pool *pgxpool.Pool) *recipientRepository {
	return &recipientRepository{pool: pool}
}

func (r *recipientRepository) GetUser(ctx context.Context, userID uuid.UUID) (Recipient, error) {
	var rc Recipient
	err := r.pool.QueryRow(ctx, `SELECT email, display_name FROM users WHERE id = $1`, userID).Scan(&rc.Email, &rc.Name)
	return rc, scanErr("user", err)
}

// GetContractor prefers the business name over the user's display name.
func (r *recipientRepository) GetContractor(ctx context.Context, contractorID uuid.UUID) (Recipient, error) {
	var rc Recipient
	err := r.pool.QueryRow(ctx, `
		SELECT u.email, COALESCE(NULLIF(cp.business_name, ''), u.display_name)
		FROM users u
		LEFT JOIN contractor_profiles cp ON cp.user_id = u.id
		WHERE u.id = $1`, contractorID).Scan(&rc.Email, &rc.Name)
	return rc, scanErr("contractor", err)
}

func (r *recipientRepository) GetProjectTitle(ctx context.Context, projectID uuid.UUID) (string, error) {
	var title string
	err := r.pool.QueryRow(ctx, `SELECT title FROM projects WHERE id = $1`, projectID).Scan(&title)
	return title, scanErr("project", err)
}

func scanErr(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, errRecipientNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
