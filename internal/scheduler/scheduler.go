// Package scheduler runs the anomaly scan of every tenant on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// Scanner is the part of the anomaly engine the scheduler drives.
type Scanner interface {
	ScanAll(ctx context.Context) (map[uuid.UUID]domain.ScanResult, error)
}

// Scheduler triggers Scanner.ScanAll once at start and then every interval.
type Scheduler struct {
	scanner  Scanner
	interval time.Duration
	log      *slog.Logger
}

// New constructs a Scheduler. log defaults to slog.Default().
func New(scanner Scanner, interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{scanner: scanner, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. A failed pass is logged and the next
// tick tries again. Passes never overlap: a pass that outlasts the interval
// delays the next one.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.InfoContext(ctx, "anomaly scheduler started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("anomaly scheduler stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	start := time.Now()
	results, err := s.scanner.ScanAll(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "anomaly pass failed", "error", err)
		return
	}
	created := 0
	for _, r := range results {
		created += r.Created
	}
	s.log.DebugContext(ctx, "anomaly pass finished",
		"tenants", len(results),
		"created", created,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
