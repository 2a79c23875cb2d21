package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
	"github.com/pkordes/shuttle-fleet/internal/repo"
)

// AnomalyConfig holds the delay rule parameters.
type AnomalyConfig struct {
	// ExpectedDurationMinutes is the single baseline run time applied to
	// every service; there is no per-route duration model.
	ExpectedDurationMinutes int

	// DefaultToleranceMinutes applies to tenants without their own tolerance.
	DefaultToleranceMinutes int

	// ScanConcurrency bounds how many tenants ScanAll scans at once.
	ScanConcurrency int
}

// AnomalyEngine scans in-progress services for delays and raises alerts.
// It is a run-on-demand job, not a background process; see internal/scheduler
// for the periodic trigger.
type AnomalyEngine struct {
	tenants  repo.TenantRepo
	services repo.ServiceRepo
	alerts   repo.AlertRepo
	cfg      AnomalyConfig
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewAnomalyEngine constructs an AnomalyEngine. now defaults to time.Now,
// log to slog.Default(); m may be nil.
func NewAnomalyEngine(tenants repo.TenantRepo, services repo.ServiceRepo, alerts repo.AlertRepo, cfg AnomalyConfig, m *metrics.Metrics, log *slog.Logger, now func() time.Time) *AnomalyEngine {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.ScanConcurrency < 1 {
		cfg.ScanConcurrency = 1
	}
	return &AnomalyEngine{
		tenants:  tenants,
		services: services,
		alerts:   alerts,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      now,
	}
}

// Scan evaluates the delay rule against every in-progress service of the
// caller's tenant. A service is delayed when the whole minutes elapsed since
// its scheduled start exceed expected duration plus tenant tolerance.
//
// A failure loading the tolerance or the services aborts the scan. A failure
// creating an alert aborts with the partial result; alerts already created
// stay, and re-running is safe because creation is deduplicated.
func (s *AnomalyEngine) Scan(ctx context.Context, scope domain.Scope) (domain.ScanResult, error) {
	result, err := s.scan(ctx, scope)
	s.metrics.ScanFinished(err == nil)
	if err != nil {
		return result, fmt.Errorf("service.AnomalyEngine.Scan: %w", err)
	}
	s.log.InfoContext(ctx, "anomaly scan finished",
		"tenant_id", scope.TenantID,
		"analyzed", result.Analyzed,
		"created", result.Created,
	)
	return result, nil
}

func (s *AnomalyEngine) scan(ctx context.Context, scope domain.Scope) (domain.ScanResult, error) {
	var result domain.ScanResult

	tolerance, err := s.tolerance(ctx, scope.TenantID)
	if err != nil {
		return result, err
	}
	threshold := s.cfg.ExpectedDurationMinutes + tolerance

	active, err := s.services.ListByState(ctx, scope.TenantID, domain.StateInProgress)
	if err != nil {
		return result, err
	}

	now := s.now()
	for _, svc := range active {
		result.Analyzed++

		elapsed := int(now.Sub(svc.ScheduledStart) / time.Minute)
		if elapsed <= threshold {
			continue
		}

		_, created, err := s.alerts.CreatePendingIfAbsent(ctx, delayAlert(svc, elapsed, threshold))
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
			s.metrics.AlertCreated(string(domain.AlertDelay))
		}
	}
	return result, nil
}

// tolerance returns the tenant's delay tolerance, or the default when the
// tenant has none configured or has no configuration row at all.
func (s *AnomalyEngine) tolerance(ctx context.Context, tenantID uuid.UUID) (int, error) {
	t, err := s.tenants.GetByID(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.cfg.DefaultToleranceMinutes, nil
	}
	if err != nil {
		return 0, err
	}
	if t.DelayToleranceMinutes == nil {
		return s.cfg.DefaultToleranceMinutes, nil
	}
	return *t.DelayToleranceMinutes, nil
}

func delayAlert(svc domain.Service, elapsed, threshold int) domain.Alert {
	bus := svc.BusLabel
	if bus == "" {
		bus = svc.BusID.String()
	}
	id := svc.ID
	return domain.Alert{
		TenantID:  svc.TenantID,
		ServiceID: &id,
		Type:      domain.AlertDelay,
		Severity:  domain.SeverityMedium,
		Message:   fmt.Sprintf("Service delayed: %d min elapsed, threshold %d min (bus %s)", elapsed, threshold, bus),
	}
}

// ScanAll scans every tenant. A tenant whose scan fails is logged and left
// out of the result; it never stops the others. The error is non-nil only if
// the tenant list itself cannot be read.
func (s *AnomalyEngine) ScanAll(ctx context.Context) (map[uuid.UUID]domain.ScanResult, error) {
	ids, err := s.tenants.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.AnomalyEngine.ScanAll: %w", err)
	}

	var (
		mu      sync.Mutex
		results = make(map[uuid.UUID]domain.ScanResult, len(ids))
		g       errgroup.Group
	)
	g.SetLimit(s.cfg.ScanConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := s.Scan(ctx, domain.Scope{TenantID: id, Role: domain.RoleAdmin})
			if err != nil {
				s.log.ErrorContext(ctx, "anomaly scan failed", "tenant_id", id, "error", err)
				return nil
			}
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
	return results, nil
}

// ListActiveAlerts returns one page of the caller's pending and acknowledged
// alerts, newest first, plus the total count.
func (s *AnomalyEngine) ListActiveAlerts(ctx context.Context, scope domain.Scope, p domain.PaginationParams) ([]domain.Alert, int64, error) {
	alerts, total, err := s.alerts.ListActive(ctx, scope.TenantID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.AnomalyEngine.ListActiveAlerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return alerts, total, nil
}
