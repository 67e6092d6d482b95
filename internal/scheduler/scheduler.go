// Package scheduler runs the periodic background jobs of the server:
// syncing card sources and refreshing hosted decks from the catalog.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Scheduler manages the recurring jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
}

// New creates a scheduler whose jobs receive ctx. Jobs never overlap with
// themselves.
func New(ctx context.Context) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, ctx: ctx}
}

// Every registers job to run every interval, first run immediately.
// A non-positive interval leaves the job unscheduled.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		slog.Debug("Job disabled", "job", name)
		return nil
	}
	_, err := s.scheduler.Every(interval).Tag(name).Do(func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			slog.Error("Scheduled job failed", "job", name, "error", err)
			return
		}
		slog.Info("Scheduled job finished", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	slog.Info("Job scheduled", "job", name, "every", interval)
	return nil
}

// Len reports how many jobs are scheduled.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Start begins running all scheduled jobs without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
