// Package scheduler runs insight generation on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mfenderov/lifeadmin/internal/pipeline"
)

// Generator is the work run on every tick.
type Generator interface {
	GenerateAll(ctx context.Context) (*pipeline.Report, error)
}

// Scheduler runs a Generator once on start and then every interval.
// Ticks missed while a run is in progress collapse into one.
type Scheduler struct {
	gen      Generator
	interval time.Duration

	mu   sync.Mutex
	runs int
	last *pipeline.Report
}

// New creates a scheduler.
func New(gen Generator, interval time.Duration) *Scheduler {
	return &Scheduler{gen: gen, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("insight scheduler started", "interval", s.interval)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			slog.Info("insight scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.gen.GenerateAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("scheduled insight generation failed", "error", err)
		}
		return
	}

	s.mu.Lock()
	s.runs++
	s.last = report
	s.mu.Unlock()

	slog.Info("scheduled insight generation complete",
		"created", report.Created(),
		"expired", report.Expired,
		"errors", len(report.Errors),
		"duration", report.Duration)
	for _, err := range report.Errors {
		slog.Warn("insight step failed", "error", err)
	}
}

// Runs returns how many runs have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Last returns the most recent report, or nil.
func (s *Scheduler) Last() *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
