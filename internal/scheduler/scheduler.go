// Package scheduler runs the dashboard refresh on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"alpha_dashboard/internal/dashboard"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher is satisfied by *dashboard.Service.
type Refresher interface {
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
}

type Scheduler struct {
	cron     *cron.Cron
	svc      Refresher
	ctx      context.Context
	interval time.Duration
	log      zerolog.Logger
}

// New creates a scheduler that refreshes every interval. A tick that fires
// while the previous refresh is still running is skipped.
func New(ctx context.Context, svc Refresher, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svc:      svc,
		ctx:      ctx,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Msg("⏰ Scheduler started")
}

// Stop waits for a running refresh to finish, up to the given grace period.
func (s *Scheduler) Stop(grace time.Duration) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(grace):
		s.log.Warn().Msg("⚠️ Refresh still running at shutdown")
	}
	s.log.Info().Msg("⏰ Scheduler stopped")
}

// RunNow refreshes immediately on the caller's goroutine.
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	if _, err := s.svc.Refresh(s.ctx); err != nil {
		s.log.Error().Err(err).Msg("❌ Scheduled refresh failed")
	}
}
