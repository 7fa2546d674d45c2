package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type SpamEvictor interface {
	EvictIdle(now time.Time) int
}

type LogCleaner interface {
	CleanupLogs(ctx context.Context, retentionDays int) (int64, error)
}

// Runner owns the periodic maintenance: spam tracker eviction every minute and
// a daily purge of moderation and server logs.
type Runner struct {
	scheduler     gocron.Scheduler
	spam          SpamEvictor
	logs          LogCleaner
	retentionDays int
	logger        *zap.Logger
}

func New(spam SpamEvictor, logs LogCleaner, retentionDays int, logger *zap.Logger) (*Runner, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	r := &Runner{scheduler: scheduler, spam: spam, logs: logs, retentionDays: retentionDays, logger: logger}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() { r.EvictSpam(time.Now()) }),
		gocron.WithName("spam-eviction"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("schedule spam eviction: %w", err)
	}

	if retentionDays > 0 {
		if _, err := scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(4, 0, 0))),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				_, _ = r.PurgeLogs(ctx)
			}),
			gocron.WithName("log-retention"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule log retention: %w", err)
		}
	}
	return r, nil
}

func (r *Runner) Start() {
	r.scheduler.Start()
}

func (r *Runner) Shutdown() error {
	return r.scheduler.Shutdown()
}

func (r *Runner) EvictSpam(now time.Time) int {
	evicted := r.spam.EvictIdle(now)
	if evicted > 0 {
		r.logger.Debug("spam tracker eviction", zap.Int("evicted", evicted))
	}
	return evicted
}

func (r *Runner) PurgeLogs(ctx context.Context) (int64, error) {
	deleted, err := r.logs.CleanupLogs(ctx, r.retentionDays)
	if err != nil {
		r.logger.Warn("log retention failed", zap.Error(err))
		return 0, err
	}
	r.logger.Info("log retention", zap.Int64("deleted", deleted), zap.Int("retention_days", r.retentionDays))
	return deleted, nil
}
