package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nhl_stats/ingestion/internal/metrics"
	"nhl_stats/ingestion/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner runs a sync; the pipeline orchestrator satisfies it
type Runner interface {
	Run(ctx context.Context, stage string) (*pipeline.RunSummary, error)
}

// PoolStatsFunc reports active and idle database connections
type PoolStatsFunc func() (active, idle int32)

// Scheduler manages background sync tasks:
// - Nightly full sync on a cron schedule
// - Periodic connection pool gauges
type Scheduler struct {
	runner    Runner
	schedule  string
	cron      *cron.Cron
	logger    zerolog.Logger
	poolStats PoolStatsFunc
	interval  time.Duration
	ticker    *time.Ticker
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithPoolStats publishes connection pool gauges every interval
func WithPoolStats(fn PoolStatsFunc, interval time.Duration) Option {
	return func(s *Scheduler) {
		s.poolStats = fn
		s.interval = interval
	}
}

// NewScheduler creates a scheduler that runs the full sync on schedule
// (standard 5-field cron). A run still in progress when the next one is due
// is not overlapped; the new one is skipped.
func NewScheduler(runner Runner, schedule string, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		schedule: schedule,
		logger:   log.Logger,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cronLog := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	return s
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Info().Msg("Running nightly sync...")
		s.RunNow(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly sync: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Msg("Nightly sync scheduled")

	if s.poolStats != nil && s.interval > 0 {
		s.ticker = time.NewTicker(s.interval)
		go s.pollPoolStats(ctx)
	}

	return nil
}

// RunNow runs a full sync and logs its summary. It returns whether every stage
// succeeded.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	start := time.Now()

	summary, err := s.runner.Run(ctx, "")
	if err != nil {
		s.logger.Error().Err(err).Msg("Sync could not start")
		metrics.RecordError("scheduler", "run")
		return false
	}

	for _, r := range summary.Results {
		s.logger.Info().Str("stage", r.Stage).Msg(r.String())
	}

	if summary.Failed() {
		s.logger.Error().
			Dur("duration", time.Since(start)).
			Msg("Sync finished with failed stages")
		return false
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Sync complete")
	return true
}

// Stop stops the scheduler and waits for a running sync to finish. Calls
// after the first are no-ops.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info().Msg("Stopping scheduler...")

		if s.cron != nil {
			<-s.cron.Stop().Done()
		}

		if s.ticker != nil {
			s.ticker.Stop()
		}

		close(s.stopChan)
		s.logger.Info().Msg("Scheduler stopped")
	})
}

// pollPoolStats publishes pool gauges until stopped
func (s *Scheduler) pollPoolStats(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			active, idle := s.poolStats()
			metrics.UpdateDBConnectionStats(active, idle)
		}
	}
}

// cronLogger routes cron's logging through zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
