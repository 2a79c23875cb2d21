package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

func TestReportPosition_201(t *testing.T) {
	serviceID := uuid.New()
	captured := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	ing := &mockIngestor{
		report: func(_ context.Context, scope domain.Scope, id uuid.UUID, lat, lng float64) (domain.PositionFix, error) {
			assert.Equal(t, tenantID, scope.TenantID)
			assert.Equal(t, serviceID, id)
			return domain.PositionFix{ID: uuid.New(), ServiceID: id, Lat: lat, Lng: lng, CapturedAt: captured}, nil
		},
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleDriver, http.MethodPost,
		"/services/"+serviceID.String()+"/positions", map[string]any{"lat": -33.45, "lng": -70.66})

	require.Equal(t, http.StatusCreated, rec.Code)
	var fix domain.PositionFix
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fix))
	assert.InDelta(t, -33.45, fix.Lat, 1e-9)
	assert.True(t, captured.Equal(fix.CapturedAt))
}

func TestReportPosition_422_MissingCoordinate(t *testing.T) {
	rec := do(t, newHTTPHandler(deps{ingestor: &mockIngestor{}}), domain.RoleDriver, http.MethodPost,
		"/services/"+uuid.NewString()+"/positions", map[string]any{"lat": 10})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lat and lng are required", decodeError(t, rec).Message)
}

func TestReportPosition_422_OutOfRange(t *testing.T) {
	ing := &mockIngestor{
		report: func(context.Context, domain.Scope, uuid.UUID, float64, float64) (domain.PositionFix, error) {
			return domain.PositionFix{}, fmt.Errorf("%w: lat must be within [-90, 90]", domain.ErrValidation)
		},
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleDriver, http.MethodPost,
		"/services/"+uuid.NewString()+"/positions", map[string]any{"lat": 91, "lng": 0})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lat must be within [-90, 90]", decodeError(t, rec).Message)
}

func TestReportPosition_409_ServiceNotActive(t *testing.T) {
	ing := &mockIngestor{
		report: func(context.Context, domain.Scope, uuid.UUID, float64, float64) (domain.PositionFix, error) {
			return domain.PositionFix{}, fmt.Errorf("service.Ingestion.Report: service is finished: %w", domain.ErrServiceNotActive)
		},
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleDriver, http.MethodPost,
		"/services/"+uuid.NewString()+"/positions", map[string]any{"lat": 0, "lng": 0})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "service_not_active", decodeError(t, rec).Code)
}

func TestReportPosition_403_ForSupervisor(t *testing.T) {
	rec := do(t, newHTTPHandler(deps{ingestor: &mockIngestor{}}), domain.RoleSupervisor, http.MethodPost,
		"/services/"+uuid.NewString()+"/positions", map[string]any{"lat": 0, "lng": 0})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLatestPosition_200(t *testing.T) {
	want := domain.PositionFix{ID: uuid.New(), Lat: 1.5, Lng: 2.5}
	ing := &mockIngestor{
		latestFor: func(context.Context, domain.Scope, uuid.UUID) (domain.PositionFix, bool, error) { return want, true, nil },
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleSupervisor, http.MethodGet,
		"/services/"+uuid.NewString()+"/positions/latest", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.PositionFix
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, want.ID, got.ID)
}

func TestLatestPosition_204_NoFixYet(t *testing.T) {
	ing := &mockIngestor{
		latestFor: func(context.Context, domain.Scope, uuid.UUID) (domain.PositionFix, bool, error) {
			return domain.PositionFix{}, false, nil
		},
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleDriver, http.MethodGet,
		"/services/"+uuid.NewString()+"/positions/latest", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestLatestPosition_404(t *testing.T) {
	ing := &mockIngestor{
		latestFor: func(context.Context, domain.Scope, uuid.UUID) (domain.PositionFix, bool, error) {
			return domain.PositionFix{}, false, domain.ErrNotFound
		},
	}

	rec := do(t, newHTTPHandler(deps{ingestor: ing}), domain.RoleDriver, http.MethodGet,
		"/services/"+uuid.NewString()+"/positions/latest", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPositionHistory_LimitParam(t *testing.T) {
	var gotLimit int
	ing := &mockIngestor{
		history: func(_ context.Context, _ domain.Scope, _ uuid.UUID, limit int) ([]domain.PositionFix, error) {
			gotLimit = limit
			return []domain.PositionFix{}, nil
		},
	}
	h := newHTTPHandler(deps{ingestor: ing})
	path := "/services/" + uuid.NewString() + "/positions"

	require.Equal(t, http.StatusOK, do(t, h, domain.RoleSupervisor, http.MethodGet, path, nil).Code)
	assert.Equal(t, 100, gotLimit)

	require.Equal(t, http.StatusOK, do(t, h, domain.RoleSupervisor, http.MethodGet, path+"?limit=5", nil).Code)
	assert.Equal(t, 5, gotLimit)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, domain.RoleSupervisor, http.MethodGet, path+"?limit=abc", nil).Code)
}
