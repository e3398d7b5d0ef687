package scheduler

import (
	"context"
	"errors"
	"testing"

	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeViewCounter struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeViewCounter) IncrementViewCount(_ context.Context, leadID uuid.UUID) error {
	f.calls = append(f.calls, leadID)
	return f.err
}

func leadViewTask(t *testing.T, leadID string) *asynq.Task {
	t.Helper()
	task, err := NewLeadViewTask(LeadViewPayload{LeadID: leadID})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestLeadViewTaskIncrementsCount(t *testing.T) {
	counter := &fakeViewCounter{}
	w := newWorker(counter, logger.New("test"))
	leadID := uuid.New()

	if err := w.handleLeadView(context.Background(), leadViewTask(t, leadID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counter.calls) != 1 || counter.calls[0] != leadID {
		t.Fatalf("expected one increment for %s, got %v", leadID, counter.calls)
	}
}

func TestLeadViewTaskSkipsRetryOnBadPayload(t *testing.T) {
	w := newWorker(&fakeViewCounter{}, logger.New("test"))

	err := w.handleLeadView(context.Background(), leadViewTask(t, "not-a-uuid"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	err = w.handleLeadView(context.Background(), asynq.NewTask(TaskLeadView, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed json, got %v", err)
	}
}

func TestLeadViewTaskDropsMissingLead(t *testing.T) {
	counter := &fakeViewCounter{err: apperr.NotFound("lead not found")}
	w := newWorker(counter, logger.New("test"))

	if err := w.handleLeadView(context.Background(), leadViewTask(t, uuid.NewString())); err != nil {
		t.Fatalf("expected missing lead to be dropped, got %v", err)
	}
}

func TestLeadViewTaskRetriesStoreErrors(t *testing.T) {
	counter := &fakeViewCounter{err: errors.New("connection reset")}
	w := newWorker(counter, logger.New("test"))

	err := w.handleLeadView(context.Background(), leadViewTask(t, uuid.NewString()))
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}
