package scheduler

import (
	"context"
	"time"

	"homeaccess_backend/platform/logger"
)

const defaultSweepInterval = time.Minute

// SweepFunc performs one pass of a periodic sweep and reports how many rows
// it changed.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper runs a SweepFunc on a fixed interval until its context ends.
type Sweeper struct {
	name     string
	sweep    SweepFunc
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(name string, interval time.Duration, sweep SweepFunc, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{name: name, sweep: sweep, interval: interval, log: log}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.sweep == nil {
		return
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	affected, err := s.sweep(ctx)
	if ctx.Err() != nil {
		return
	}
	s.log.SweepResult(s.name, affected, err)
}
