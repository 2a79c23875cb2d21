package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/repo"
	"github.com/pkordes/shuttle-fleet/internal/service"
)

// Hand-written test doubles for the repo interfaces. Each method is a
// function field; set only the ones your test needs.

type mockServiceRepo struct {
	create      func(ctx context.Context, svc domain.Service) (domain.Service, error)
	getByID     func(ctx context.Context, tenantID, id uuid.UUID) (domain.Service, error)
	listByState func(ctx context.Context, tenantID uuid.UUID, state domain.ServiceState) ([]domain.Service, error)
	updateState func(ctx context.Context, tenantID, id uuid.UUID, from, to domain.ServiceState) (domain.Service, error)
}

func (m *mockServiceRepo) Create(ctx context.Context, svc domain.Service) (domain.Service, error) {
	return m.create(ctx, svc)
}
func (m *mockServiceRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Service, error) {
	return m.getByID(ctx, tenantID, id)
}
func (m *mockServiceRepo) ListByState(ctx context.Context, tenantID uuid.UUID, state domain.ServiceState) ([]domain.Service, error) {
	return m.listByState(ctx, tenantID, state)
}
func (m *mockServiceRepo) UpdateState(ctx context.Context, tenantID, id uuid.UUID, from, to domain.ServiceState) (domain.Service, error) {
	return m.updateState(ctx, tenantID, id, from, to)
}

var _ repo.ServiceRepo = (*mockServiceRepo)(nil)

type mockPositionRepo struct {
	append          func(ctx context.Context, fix domain.PositionFix) (domain.PositionFix, error)
	latestFor       func(ctx context.Context, tenantID, serviceID uuid.UUID) (domain.PositionFix, error)
	latestForActive func(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]domain.PositionFix, error)
	history         func(ctx context.Context, tenantID, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error)
}

func (m *mockPositionRepo) Append(ctx context.Context, fix domain.PositionFix) (domain.PositionFix, error) {
	return m.append(ctx, fix)
}
func (m *mockPositionRepo) LatestFor(ctx context.Context, tenantID, serviceID uuid.UUID) (domain.PositionFix, error) {
	return m.latestFor(ctx, tenantID, serviceID)
}
func (m *mockPositionRepo) LatestForActive(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]domain.PositionFix, error) {
	return m.latestForActive(ctx, tenantID)
}
func (m *mockPositionRepo) History(ctx context.Context, tenantID, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error) {
	return m.history(ctx, tenantID, serviceID, limit)
}

var _ repo.PositionRepo = (*mockPositionRepo)(nil)

type mockAlertRepo struct {
	createPendingIfAbsent func(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error)
	listActive            func(ctx context.Context, tenantID uuid.UUID, p domain.PaginationParams) ([]domain.Alert, int64, error)
}

func (m *mockAlertRepo) CreatePendingIfAbsent(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error) {
	return m.createPendingIfAbsent(ctx, alert)
}
func (m *mockAlertRepo) ListActive(ctx context.Context, tenantID uuid.UUID, p domain.PaginationParams) ([]domain.Alert, int64, error) {
	return m.listActive(ctx, tenantID, p)
}

var _ repo.AlertRepo = (*mockAlertRepo)(nil)

type mockAttendanceRepo struct {
	upsert                 func(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error)
	listByService          func(ctx context.Context, tenantID, serviceID uuid.UUID) ([]domain.AttendanceRecord, error)
	presentByActiveService func(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error)
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	return m.upsert(ctx, rec)
}
func (m *mockAttendanceRepo) ListByService(ctx context.Context, tenantID, serviceID uuid.UUID) ([]domain.AttendanceRecord, error) {
	return m.listByService(ctx, tenantID, serviceID)
}
func (m *mockAttendanceRepo) PresentByActiveService(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error) {
	return m.presentByActiveService(ctx, tenantID)
}

var _ repo.AttendanceRepo = (*mockAttendanceRepo)(nil)

type mockTenantRepo struct {
	getByID func(ctx context.Context, id uuid.UUID) (domain.Tenant, error)
	listIDs func(ctx context.Context) ([]uuid.UUID, error)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	return m.getByID(ctx, id)
}
func (m *mockTenantRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.listIDs(ctx)
}

var _ repo.TenantRepo = (*mockTenantRepo)(nil)

// ---- helpers ---------------------------------------------------------------

// storedService returns a ServiceRepo whose GetByID serves svc for its own
// tenant only and reports ErrNotFound for anything else.
func storedService(svc domain.Service) *mockServiceRepo {
	return &mockServiceRepo{
		getByID: func(_ context.Context, tenantID, id uuid.UUID) (domain.Service, error) {
			if tenantID != svc.TenantID || id != svc.ID {
				return domain.Service{}, domain.ErrNotFound
			}
			return svc, nil
		},
	}
}

func scopeFor(tenantID uuid.UUID, role domain.Role) domain.Scope {
	return domain.Scope{TenantID: tenantID, Role: role}
}

// counterTotal sums every series of the named counter family in reg.
func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// recordingInvalidator remembers every tenant whose snapshot was dropped.
type recordingInvalidator struct{ tenants []uuid.UUID }

func (r *recordingInvalidator) Invalidate(_ context.Context, tenantID uuid.UUID) {
	r.tenants = append(r.tenants, tenantID)
}

var _ service.SnapshotInvalidator = (*recordingInvalidator)(nil)
