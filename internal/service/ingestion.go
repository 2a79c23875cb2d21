package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
	"github.com/pkordes/shuttle-fleet/internal/repo"
)

// MaxHistory caps how many fixes one History call returns.
const MaxHistory = 1000

// Ingestion accepts position reports from drivers and answers "where is it now".
type Ingestion struct {
	services  repo.ServiceRepo
	positions repo.PositionRepo
	metrics   *metrics.Metrics
	now       func() time.Time
	snapshots SnapshotInvalidator
}

// NewIngestion constructs an Ingestion. now defaults to time.Now; m may be nil.
func NewIngestion(services repo.ServiceRepo, positions repo.PositionRepo, m *metrics.Metrics, now func() time.Time) *Ingestion {
	if now == nil {
		now = time.Now
	}
	return &Ingestion{services: services, positions: positions, metrics: m, now: now}
}

// SetSnapshotInvalidator makes every accepted fix drop the tenant's cached
// fleet snapshot. Call it before serving requests.
func (s *Ingestion) SetSnapshotInvalidator(inv SnapshotInvalidator) {
	s.snapshots = inv
}

// Report appends a fix for an in-progress service, stamped with the server
// clock. Client timestamps are never accepted.
// Returns domain.ErrValidation for out-of-range coordinates,
// domain.ErrNotFound if the service is not in the caller's tenant and
// domain.ErrServiceNotActive if it is not in progress. The state is checked
// again by the insert itself, so a fix never lands on a service that
// finished after the first check.
func (s *Ingestion) Report(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, lat, lng float64) (domain.PositionFix, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		s.metrics.PositionRejected("invalid_coordinates")
		return domain.PositionFix{}, err
	}

	svc, err := s.services.GetByID(ctx, scope.TenantID, serviceID)
	if err != nil {
		return domain.PositionFix{}, fmt.Errorf("service.Ingestion.Report: %w", err)
	}
	if svc.State != domain.StateInProgress {
		s.metrics.PositionRejected("service_not_active")
		return domain.PositionFix{}, fmt.Errorf("service.Ingestion.Report: service is %s: %w", svc.State, domain.ErrServiceNotActive)
	}

	fix, err := s.positions.Append(ctx, domain.PositionFix{
		TenantID:   scope.TenantID,
		ServiceID:  serviceID,
		Lat:        lat,
		Lng:        lng,
		CapturedAt: s.now().UTC(),
	})
	if errors.Is(err, domain.ErrServiceNotActive) {
		s.metrics.PositionRejected("service_not_active")
	}
	if err != nil {
		return domain.PositionFix{}, fmt.Errorf("service.Ingestion.Report: %w", err)
	}
	s.metrics.PositionReported()
	invalidate(ctx, s.snapshots, scope.TenantID)
	return fix, nil
}

// LatestFor returns the most recent fix of a service; ok is false if it has
// not reported yet. Returns domain.ErrNotFound if the service is not in the
// caller's tenant.
func (s *Ingestion) LatestFor(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) (fix domain.PositionFix, ok bool, err error) {
	if _, err := s.services.GetByID(ctx, scope.TenantID, serviceID); err != nil {
		return domain.PositionFix{}, false, fmt.Errorf("service.Ingestion.LatestFor: %w", err)
	}
	fix, err = s.positions.LatestFor(ctx, scope.TenantID, serviceID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PositionFix{}, false, nil
	}
	if err != nil {
		return domain.PositionFix{}, false, fmt.Errorf("service.Ingestion.LatestFor: %w", err)
	}
	return fix, true, nil
}

// LatestForActiveServices returns one fix per in-progress service that has
// reported at least once, keyed by service id.
func (s *Ingestion) LatestForActiveServices(ctx context.Context, scope domain.Scope) (map[uuid.UUID]domain.PositionFix, error) {
	fixes, err := s.positions.LatestForActive(ctx, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("service.Ingestion.LatestForActiveServices: %w", err)
	}
	if fixes == nil {
		return map[uuid.UUID]domain.PositionFix{}, nil
	}
	return fixes, nil
}

// History returns up to limit fixes of a service, newest first. limit is
// clamped to [1, MaxHistory].
func (s *Ingestion) History(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error) {
	if _, err := s.services.GetByID(ctx, scope.TenantID, serviceID); err != nil {
		return nil, fmt.Errorf("service.Ingestion.History: %w", err)
	}
	limit = max(1, min(limit, MaxHistory))
	fixes, err := s.positions.History(ctx, scope.TenantID, serviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.Ingestion.History: %w", err)
	}
	if fixes == nil {
		return []domain.PositionFix{}, nil
	}
	return fixes, nil
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat must be within [-90, 90]", domain.ErrValidation)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng must be within [-180, 180]", domain.ErrValidation)
	}
	return nil
}
