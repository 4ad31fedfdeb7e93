// Package scheduler runs Xiaoyu's recurring background jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// digestSpec fires the daily analytics digest at 21:00 UTC.
const digestSpec = "0 21 * * *"

// DigestFunc produces and delivers one analytics digest run.
type DigestFunc func(ctx context.Context) error

// Scheduler manages recurring jobs.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	digest DigestFunc
}

// New creates a scheduler pinned to UTC.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetDigestFunc sets the job run on the daily digest schedule.
func (s *Scheduler) SetDigestFunc(f DigestFunc) {
	s.digest = f
}

// Start registers the digest job and starts the cron loop. Without a
// digest func the scheduler stays idle.
func (s *Scheduler) Start() error {
	if s.digest == nil {
		slog.Warn("no digest func configured, scheduler stays idle")
		return nil
	}

	_, err := s.cron.AddFunc(digestSpec, func() {
		slog.Info("running daily analytics digest")
		if err := s.digest(s.ctx); err != nil {
			slog.Error("daily analytics digest failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest: %w", err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "digest", digestSpec)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
}
