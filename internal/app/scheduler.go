/**
 * @description
 * Cron scheduler for housekeeping jobs. The only job today purges refresh tokens that
 * can no longer be used.
 */
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TokenPurger deletes dead refresh tokens older than a cutoff.
type TokenPurger interface {
	PurgeRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error)
}

// Jobs contains the logic of the scheduled tasks.
type Jobs struct {
	purger    TokenPurger
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewJobs(purger TokenPurger, retention time.Duration, logger *zap.Logger) *Jobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{
		purger:    purger,
		retention: retention,
		logger:    logger.With(zap.String("component", "jobs")),
		now:       time.Now,
	}
}

// PurgeRefreshTokens removes inactive refresh tokens past the retention window.
func (j *Jobs) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	purged, err := j.purger.PurgeRefreshTokens(ctx, cutoff)
	if err != nil {
		j.logger.Error("refresh token purge failed", zap.Error(err))
		return 0, err
	}
	j.logger.Info("refresh token purge finished", zap.Int64("purged", purged), zap.Time("cutoff", cutoff))
	return purged, nil
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	schedule string
	logger   *zap.Logger
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a scheduler running the purge job on schedule (standard 5-field cron).
func NewScheduler(jobs *Jobs, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "scheduler"))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger: logger})))
	return &Scheduler{cron: c, jobs: jobs, schedule: schedule, logger: logger}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.jobs.PurgeRefreshTokens(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh token purge %q: %w", s.schedule, err)
	}
	s.logger.Info("scheduled refresh token purge job", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
