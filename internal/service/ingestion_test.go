package service_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
	"github.com/pkordes/shuttle-fleet/internal/service"
)

var fixedNow = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func appendingRepo(appended *[]domain.PositionFix) *mockPositionRepo {
	return &mockPositionRepo{
		append: func(_ context.Context, fix domain.PositionFix) (domain.PositionFix, error) {
			fix.ID = uuid.New()
			*appended = append(*appended, fix)
			return fix, nil
		},
	}
}

func TestIngestion_Report_StampsServerTime(t *testing.T) {
	svc := existing(domain.StateInProgress)
	var appended []domain.PositionFix
	ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)

	fix, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, -33.45, -70.66)

	require.NoError(t, err)
	require.Len(t, appended, 1)
	assert.Equal(t, fixedNow, fix.CapturedAt)
	assert.Equal(t, tenantA, fix.TenantID)
	assert.Equal(t, svc.ID, fix.ServiceID)
	assert.InDelta(t, -33.45, fix.Lat, 1e-9)
}

func TestIngestion_Report_InvalidCoordinates(t *testing.T) {
	cases := map[string][2]float64{
		"lat too high": {90.0001, 0},
		"lat too low":  {-91, 0},
		"lng too high": {0, 180.5},
		"lng too low":  {0, -181},
		"lat NaN":      {math.NaN(), 0},
		"lng NaN":      {0, math.NaN()},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			svc := existing(domain.StateInProgress)
			var appended []domain.PositionFix
			ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)

			_, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, c[0], c[1])

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, appended)
		})
	}
}

func TestIngestion_Report_BoundaryCoordinatesAccepted(t *testing.T) {
	svc := existing(domain.StateInProgress)
	var appended []domain.PositionFix
	ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)

	_, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, 90, -180)

	require.NoError(t, err)
	assert.Len(t, appended, 1)
}

func TestIngestion_Report_ServiceNotActive(t *testing.T) {
	for _, state := range []domain.ServiceState{domain.StateScheduled, domain.StateFinished, domain.StateCancelled} {
		t.Run(string(state), func(t *testing.T) {
			svc := existing(state)
			var appended []domain.PositionFix
			ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)

			_, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, 0, 0)

			assert.ErrorIs(t, err, domain.ErrServiceNotActive)
			assert.Empty(t, appended)
		})
	}
}

func TestIngestion_Report_OtherTenant(t *testing.T) {
	svc := existing(domain.StateInProgress)
	var appended []domain.PositionFix
	ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)

	_, err := ing.Report(context.Background(), scopeFor(tenantB, domain.RoleDriver), svc.ID, 0, 0)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, appended)
}

func TestIngestion_LatestFor_NoFixYet(t *testing.T) {
	svc := existing(domain.StateInProgress)
	ing := service.NewIngestion(storedService(svc), &mockPositionRepo{
		latestFor: func(context.Context, uuid.UUID, uuid.UUID) (domain.PositionFix, error) {
			return domain.PositionFix{}, domain.ErrNotFound
		},
	}, nil, clock)

	_, ok, err := ing.LatestFor(context.Background(), scopeFor(tenantA, domain.RoleSupervisor), svc.ID)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIngestion_LatestFor_UnknownService(t *testing.T) {
	svc := existing(domain.StateInProgress)
	ing := service.NewIngestion(storedService(svc), &mockPositionRepo{}, nil, clock)

	_, _, err := ing.LatestFor(context.Background(), scopeFor(tenantA, domain.RoleSupervisor), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestion_LatestFor_Found(t *testing.T) {
	svc := existing(domain.StateInProgress)
	want := domain.PositionFix{ID: uuid.New(), ServiceID: svc.ID, Lat: 1, Lng: 2, CapturedAt: fixedNow}
	ing := service.NewIngestion(storedService(svc), &mockPositionRepo{
		latestFor: func(context.Context, uuid.UUID, uuid.UUID) (domain.PositionFix, error) { return want, nil },
	}, nil, clock)

	got, ok, err := ing.LatestFor(context.Background(), scopeFor(tenantA, domain.RoleSupervisor), svc.ID)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestIngestion_History_ClampsLimit(t *testing.T) {
	svc := existing(domain.StateInProgress)
	var gotLimits []int
	ing := service.NewIngestion(storedService(svc), &mockPositionRepo{
		history: func(_ context.Context, _, _ uuid.UUID, limit int) ([]domain.PositionFix, error) {
			gotLimits = append(gotLimits, limit)
			return nil, nil
		},
	}, nil, clock)
	scope := scopeFor(tenantA, domain.RoleSupervisor)

	for _, limit := range []int{0, 25, 5000} {
		fixes, err := ing.History(context.Background(), scope, svc.ID, limit)
		require.NoError(t, err)
		assert.NotNil(t, fixes)
	}

	assert.Equal(t, []int{1, 25, service.MaxHistory}, gotLimits)
}

func TestIngestion_Report_InvalidatesSnapshot(t *testing.T) {
	svc := existing(domain.StateInProgress)
	var appended []domain.PositionFix
	inv := &recordingInvalidator{}
	ing := service.NewIngestion(storedService(svc), appendingRepo(&appended), nil, clock)
	ing.SetSnapshotInvalidator(inv)

	_, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, -33.45, -70.66)
	require.NoError(t, err)
	_, err = ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, 91, 0)
	require.Error(t, err)

	assert.Equal(t, []uuid.UUID{tenantA}, inv.tenants, "only the accepted fix invalidates")
}

// The service was in progress when read, but finished before the insert ran.
func TestIngestion_Report_FinishedBeforeInsert(t *testing.T) {
	svc := existing(domain.StateInProgress)
	reg := prometheus.NewRegistry()
	inv := &recordingInvalidator{}
	ing := service.NewIngestion(storedService(svc), &mockPositionRepo{
		append: func(context.Context, domain.PositionFix) (domain.PositionFix, error) {
			return domain.PositionFix{}, fmt.Errorf("repo.PositionRepo.Append: %w", domain.ErrServiceNotActive)
		},
	}, metrics.New(reg), clock)
	ing.SetSnapshotInvalidator(inv)

	_, err := ing.Report(context.Background(), scopeFor(tenantA, domain.RoleDriver), svc.ID, 0, 0)

	assert.ErrorIs(t, err, domain.ErrServiceNotActive)
	assert.Equal(t, 1.0, counterTotal(t, reg, "fleet_positions_rejected_total"))
	assert.Equal(t, 0.0, counterTotal(t, reg, "fleet_positions_reported_total"))
	assert.Empty(t, inv.tenants)
}
