package scheduler

import (
	"context"
	"fmt"

	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadViewCounter applies a tracked lead view.
type LeadViewCounter interface {
	IncrementViewCount(ctx context.Context, leadID uuid.UUID) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	views  LeadViewCounter
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, views LeadViewCounter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(views, log)
	w.server = server
	return w, nil
}

func newWorker(views LeadViewCounter, log *logger.Logger) *Worker {
	w := &Worker{
		mux:   asynq.NewServeMux(),
		views: views,
		log:   log,
	}
	w.mux.HandleFunc(TaskLeadView, w.handleLeadView)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadView(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadViewPayload(task)
	if err != nil {
		return fmt.Errorf("decode lead view: %v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("lead view id: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.views.IncrementViewCount(ctx, leadID); err != nil {
		// The lead was deleted after the view was queued.
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Warn("lead view for missing lead", "leadId", leadID)
			return nil
		}
		return err
	}
	return nil
}
