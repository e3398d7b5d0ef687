package repository

import (
	"context"
	"time"

	"homeaccess_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListAvailable(ctx context.Context, params ListParams) ([]Lead, error)
	GetScan(ctx context.Context, id uuid.UUID) (Scan, error)
	GetProjectOwner(ctx context.Context, id uuid.UUID) (ProjectOwner, error)
	GetMetrics(ctx context.Context) (LeadMetrics, error)
}

// LeadWriter creates leads and applies plain status updates.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Lead, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

// LockStore holds the conditional writes of the lock/purchase protocol.
type LockStore interface {
	Lock(ctx context.Context, id, contractorID uuid.UUID, idempotencyKey *string) (Lead, error)
	Purchase(ctx context.Context, id, contractorID uuid.UUID, lockedAfter time.Time, paymentReference *string) (Lead, error)
	ReleaseLock(ctx context.Context, id, contractorID uuid.UUID) (Lead, error)
	ReleaseExpiredLocks(ctx context.Context, cutoff time.Time) ([]ReleasedLock, error)
	AdvanceMatchOnPurchase(ctx context.Context, projectID, contractorID uuid.UUID) error
}

// EventLog appends and reads lead audit events.
type EventLog interface {
	AppendEvent(ctx context.Context, params AppendEventParams) (LeadEvent, error)
	ListEvents(ctx context.Context, leadID uuid.UUID) ([]LeadEvent, error)
}

// LeadsRepository is the full repository used by the leads services.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	LockStore
	EventLog
}

var _ LeadsRepository = (*Repository)(nil)
