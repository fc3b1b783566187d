package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/config"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
)

const jobTimeout = 5 * time.Minute

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) (*reconciliation.Outcome, error)
}

// Scheduler runs the daily sheet reconciliation on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	job      Job
	schedule string
	logger   *zap.Logger
}

// NewScheduler creates a scheduler evaluating cfg.CronSchedule in
// cfg.Timezone.
func NewScheduler(cfg config.ReportingConfig, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		job:      job,
		schedule: cfg.CronSchedule,
		logger:   logger,
	}, nil
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runJob); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	out, err := s.job.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled reconciliation failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled reconciliation finished",
		zap.String("run_id", out.RunID),
		zap.Int("low_stock", out.Summary.Metrics.LowStockCount),
		zap.Strings("warnings", out.Warnings))
}
