package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
	"github.com/pkordes/shuttle-fleet/internal/repo"
)

// Attendance records which workers rode which service.
type Attendance struct {
	services repo.ServiceRepo
	records  repo.AttendanceRepo
	metrics  *metrics.Metrics
	now      func() time.Time

	snapshots SnapshotInvalidator
}

// NewAttendance constructs an Attendance ledger. now defaults to time.Now; m may be nil.
func NewAttendance(services repo.ServiceRepo, records repo.AttendanceRepo, m *metrics.Metrics, now func() time.Time) *Attendance {
	if now == nil {
		now = time.Now
	}
	return &Attendance{services: services, records: records, metrics: m, now: now}
}

// SetSnapshotInvalidator makes every attendance write drop the tenant's
// cached fleet snapshot, whose occupancy counts depend on it.
func (s *Attendance) SetSnapshotInvalidator(inv SnapshotInvalidator) {
	s.snapshots = inv
}

// SetStatus upserts the attendance of one worker on one service. CheckInAt is
// stamped when the status becomes present and cleared otherwise. Concurrent
// calls for the same worker leave exactly one record, holding the last write.
func (s *Attendance) SetStatus(ctx context.Context, scope domain.Scope, serviceID, workerID uuid.UUID, status domain.AttendanceStatus) (domain.AttendanceRecord, error) {
	if _, err := s.services.GetByID(ctx, scope.TenantID, serviceID); err != nil {
		return domain.AttendanceRecord{}, fmt.Errorf("service.Attendance.SetStatus: %w", err)
	}
	rec, err := s.set(ctx, scope, serviceID, workerID, status)
	if err != nil {
		return domain.AttendanceRecord{}, fmt.Errorf("service.Attendance.SetStatus: %w", err)
	}
	return rec, nil
}

// BulkSet applies SetStatus to every entry. Entries are independent: one
// failing does not stop the others, and each gets its own result in input
// order. The returned error is non-nil only if the service itself is not found.
func (s *Attendance) BulkSet(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, entries []domain.AttendanceEntry) ([]domain.BulkResult, error) {
	if _, err := s.services.GetByID(ctx, scope.TenantID, serviceID); err != nil {
		return nil, fmt.Errorf("service.Attendance.BulkSet: %w", err)
	}
	results := make([]domain.BulkResult, len(entries))
	for i, e := range entries {
		rec, err := s.set(ctx, scope, serviceID, e.WorkerID, e.Status)
		results[i] = domain.BulkResult{WorkerID: e.WorkerID, Record: rec, Err: err}
	}
	return results, nil
}

// ListForService returns every attendance record of a service.
// Always returns a non-nil slice.
func (s *Attendance) ListForService(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) ([]domain.AttendanceRecord, error) {
	if _, err := s.services.GetByID(ctx, scope.TenantID, serviceID); err != nil {
		return nil, fmt.Errorf("service.Attendance.ListForService: %w", err)
	}
	records, err := s.records.ListByService(ctx, scope.TenantID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("service.Attendance.ListForService: %w", err)
	}
	if records == nil {
		return []domain.AttendanceRecord{}, nil
	}
	return records, nil
}

// OccupancyForActive returns the number of present workers per in-progress service.
func (s *Attendance) OccupancyForActive(ctx context.Context, scope domain.Scope) (map[uuid.UUID]int, error) {
	counts, err := s.records.PresentByActiveService(ctx, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("service.Attendance.OccupancyForActive: %w", err)
	}
	return counts, nil
}

// set validates one entry and upserts it, retrying unique-key conflicts.
func (s *Attendance) set(ctx context.Context, scope domain.Scope, serviceID, workerID uuid.UUID, status domain.AttendanceStatus) (domain.AttendanceRecord, error) {
	if workerID == uuid.Nil {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: worker_id is required", domain.ErrValidation)
	}
	if !status.Valid() {
		return domain.AttendanceRecord{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	rec := domain.AttendanceRecord{
		TenantID:  scope.TenantID,
		ServiceID: serviceID,
		WorkerID:  workerID,
		Status:    status,
	}
	if status == domain.AttendancePresent {
		now := s.now().UTC()
		rec.CheckInAt = &now
	}

	var result domain.AttendanceRecord
	err := retryOnConflict(ctx, s.metrics.AttendanceRetry, func(ctx context.Context) error {
		var err error
		result, err = s.records.Upsert(ctx, rec)
		return err
	})
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	invalidate(ctx, s.snapshots, scope.TenantID)
	return result, nil
}
