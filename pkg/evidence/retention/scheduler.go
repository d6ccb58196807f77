package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the pruner on a cron schedule evaluated in UTC. A pruning
// run that is still in progress when the next one is due causes that one to
// be skipped, and a panic inside a run is logged instead of stopping the
// scheduler.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
}

// NewScheduler creates an idle scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		logger: pruner.logger.With("job", "scheduler"),
	}
}

// Start schedules pruning with the configured cron expression, for example
// "0 3 * * *" for 03:00 UTC every day. An empty schedule leaves the scheduler
// idle. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	schedule := s.pruner.config.Schedule
	if schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	entry, err := c.AddFunc(schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}
	c.Start()
	s.cron, s.entry = c, entry

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
		"next_run", c.Entry(entry).Next,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	result, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}

	level := slog.LevelDebug
	if result.Deleted() > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "scheduled pruning completed",
		"deleted_by_age", result.ByAge,
		"deleted_by_count", result.ByCount,
		"archives", len(result.Archives),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Stop stops the scheduler and waits for a running pruning to finish. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether pruning is scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun returns the next scheduled pruning time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// ValidateSchedule reports whether schedule is a valid standard cron
// expression. Empty is valid and disables scheduling.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
