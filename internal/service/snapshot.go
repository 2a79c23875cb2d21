package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/cache"
	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
)

// ActiveLister is the part of the Registry the snapshot reads.
type ActiveLister interface {
	ListActive(ctx context.Context, scope domain.Scope) ([]domain.Service, error)
}

// LatestFixer is the part of Ingestion the snapshot reads.
type LatestFixer interface {
	LatestForActiveServices(ctx context.Context, scope domain.Scope) (map[uuid.UUID]domain.PositionFix, error)
}

// OccupancyCounter is the part of Attendance the snapshot reads.
type OccupancyCounter interface {
	OccupancyForActive(ctx context.Context, scope domain.Scope) (map[uuid.UUID]int, error)
}

// SnapshotInvalidator drops a tenant's cached fleet snapshot. Registry,
// Ingestion and Attendance call it after every write the snapshot shows.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// Snapshotter builds the live fleet view polled by supervisors.
type Snapshotter struct {
	services  ActiveLister
	fixes     LatestFixer
	occupancy OccupancyCounter
	cache     cache.SnapshotCache
	metrics   *metrics.Metrics
	log       *slog.Logger

	// generations counts invalidations per tenant. A build only stores its
	// result if no invalidation happened while it was reading.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewSnapshotter wires the snapshot builder. A nil c disables caching and a
// nil occupancy leaves FleetEntry.Occupancy at zero.
func NewSnapshotter(services ActiveLister, fixes LatestFixer, occupancy OccupancyCounter, c cache.SnapshotCache, m *metrics.Metrics, log *slog.Logger) *Snapshotter {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Snapshotter{
		services:    services,
		fixes:       fixes,
		occupancy:   occupancy,
		cache:       c,
		metrics:     m,
		log:         log,
		generations: map[uuid.UUID]uint64{},
	}
}

// Snapshot returns one entry per in-progress service that has reported a
// position, in scheduled-start order. Services with no fix yet are left out.
// Cache errors are logged and the snapshot is rebuilt from the repos.
func (s *Snapshotter) Snapshot(ctx context.Context, scope domain.Scope) ([]domain.FleetEntry, error) {
	cached, ok, err := s.cache.Get(ctx, scope.TenantID)
	switch {
	case err != nil:
		s.metrics.SnapshotCache("error")
		s.log.WarnContext(ctx, "snapshot cache read failed", "tenant_id", scope.TenantID, "error", err)
	case ok:
		s.metrics.SnapshotCache("hit")
		return cached, nil
	default:
		s.metrics.SnapshotCache("miss")
	}

	gen := s.generation(scope.TenantID)
	entries, err := s.build(ctx, scope)
	if err != nil {
		return nil, err
	}
	if s.generation(scope.TenantID) != gen {
		return entries, nil
	}
	if err := s.cache.Set(ctx, scope.TenantID, entries); err != nil {
		s.log.WarnContext(ctx, "snapshot cache write failed", "tenant_id", scope.TenantID, "error", err)
		return entries, nil
	}
	// An invalidation that landed between the check and the write.
	if s.generation(scope.TenantID) != gen {
		if err := s.cache.Delete(ctx, scope.TenantID); err != nil {
			s.log.WarnContext(ctx, "snapshot cache invalidation failed", "tenant_id", scope.TenantID, "error", err)
		}
	}
	return entries, nil
}

// Invalidate drops the tenant's cached snapshot so the next Snapshot is
// rebuilt. A failed delete is logged and the entry lives out its TTL.
func (s *Snapshotter) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	s.mu.Lock()
	s.generations[tenantID]++
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, tenantID); err != nil {
		s.metrics.SnapshotCache("error")
		s.log.WarnContext(ctx, "snapshot cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

func (s *Snapshotter) generation(tenantID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[tenantID]
}

func invalidate(ctx context.Context, inv SnapshotInvalidator, tenantID uuid.UUID) {
	if inv != nil {
		inv.Invalidate(ctx, tenantID)
	}
}

func (s *Snapshotter) build(ctx context.Context, scope domain.Scope) ([]domain.FleetEntry, error) {
	services, err := s.services.ListActive(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("service.Snapshotter.Snapshot: %w", err)
	}
	fixes, err := s.fixes.LatestForActiveServices(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("service.Snapshotter.Snapshot: %w", err)
	}
	var occupancy map[uuid.UUID]int
	if s.occupancy != nil {
		if occupancy, err = s.occupancy.OccupancyForActive(ctx, scope); err != nil {
			return nil, fmt.Errorf("service.Snapshotter.Snapshot: %w", err)
		}
	}

	entries := make([]domain.FleetEntry, 0, len(fixes))
	for _, svc := range services {
		fix, ok := fixes[svc.ID]
		if !ok {
			continue
		}
		entries = append(entries, domain.FleetEntry{
			ServiceID:    svc.ID,
			BusLabel:     svc.BusLabel,
			DriverName:   svc.DriverName,
			RouteSummary: svc.RouteSummary(),
			Lat:          fix.Lat,
			Lng:          fix.Lng,
			FixTimestamp: fix.CapturedAt,
			Occupancy:    occupancy[svc.ID],
		})
	}
	return entries, nil
}
