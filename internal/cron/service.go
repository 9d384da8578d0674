// Package cron runs a job on a cron schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Job is the work done on each tick.
type Job func(ctx context.Context) error

// Scheduler fires one job on a cron expression.
type Scheduler struct {
	name  string
	expr  string
	job   Job
	retry RetryConfig
	now   func() time.Time
}

// New validates expr and returns a scheduler for job.
func New(name, expr string, job Job) (*Scheduler, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression: %s", expr)
	}
	return &Scheduler{
		name:  name,
		expr:  expr,
		job:   job,
		retry: DefaultRetryConfig(),
		now:   time.Now,
	}, nil
}

// SetRetryConfig overrides the default retry configuration.
func (s *Scheduler) SetRetryConfig(cfg RetryConfig) {
	s.retry = cfg
}

// Next returns the first tick strictly after t.
func (s *Scheduler) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, t, false)
}

// Run waits for each tick and runs the job until ctx is cancelled. Runs do
// not overlap: a tick that passes during a run is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("cron: scheduler started", "job", s.name, "expr", s.expr)
	for {
		next, err := s.Next(s.now())
		if err != nil {
			return fmt.Errorf("cron: compute next run for %s: %w", s.name, err)
		}
		slog.Debug("cron: next run", "job", s.name, "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("cron: scheduler stopped", "job", s.name)
			return nil
		case <-timer.C:
		}

		s.RunOnce(ctx)
	}
}

// RunOnce runs the job with retries and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := s.now()
	attempts, err := ExecuteWithRetry(ctx, func(ctx context.Context) error { return s.job(ctx) }, s.retry)
	if err != nil {
		slog.Error("cron: job failed", "job", s.name, "attempts", attempts, "error", err)
		return err
	}
	slog.Info("cron: job completed", "job", s.name, "attempts", attempts, "duration", s.now().Sub(start))
	return nil
}
