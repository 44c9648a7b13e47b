package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the idle sweep twice a minute.
const DefaultSweepSchedule = "@every 30s"

// Sweeper runs Manager.SweepIdle on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	manager *Manager
	timeout time.Duration
	logger  *slog.Logger
}

// NewSweeper schedules sweeps of m. An empty schedule uses
// DefaultSweepSchedule. Overlapping runs are skipped.
func NewSweeper(m *Manager, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		manager: m,
		timeout: time.Minute,
		logger:  logger.With("component", "session.sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("session: sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report := s.manager.SweepIdle(ctx)
	if report.Skipped > 0 {
		s.logger.Debug("busy sessions skipped", "count", report.Skipped)
	}
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("idle sweeper started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
