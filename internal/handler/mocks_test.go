package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/handler"
	"github.com/pkordes/shuttle-fleet/internal/middleware"
)

// Test doubles for the handler's servicer interfaces.
// Set only the method fields your test needs.

type mockRegistry struct {
	create     func(ctx context.Context, scope domain.Scope, svc domain.Service) (domain.Service, error)
	getByID    func(ctx context.Context, scope domain.Scope, id uuid.UUID) (domain.Service, error)
	transition func(ctx context.Context, scope domain.Scope, id uuid.UUID, target domain.ServiceState) (domain.Service, error)
	clone      func(ctx context.Context, scope domain.Scope, id uuid.UUID, newDate time.Time) (domain.Service, error)
	listActive func(ctx context.Context, scope domain.Scope) ([]domain.Service, error)
}

func (m *mockRegistry) Create(ctx context.Context, scope domain.Scope, svc domain.Service) (domain.Service, error) {
	return m.create(ctx, scope, svc)
}
func (m *mockRegistry) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (domain.Service, error) {
	return m.getByID(ctx, scope, id)
}
func (m *mockRegistry) Transition(ctx context.Context, scope domain.Scope, id uuid.UUID, target domain.ServiceState) (domain.Service, error) {
	return m.transition(ctx, scope, id, target)
}
func (m *mockRegistry) Clone(ctx context.Context, scope domain.Scope, id uuid.UUID, newDate time.Time) (domain.Service, error) {
	return m.clone(ctx, scope, id, newDate)
}
func (m *mockRegistry) ListActive(ctx context.Context, scope domain.Scope) ([]domain.Service, error) {
	return m.listActive(ctx, scope)
}

var _ handler.ServiceRegistry = (*mockRegistry)(nil)

type mockIngestor struct {
	report    func(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, lat, lng float64) (domain.PositionFix, error)
	latestFor func(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) (domain.PositionFix, bool, error)
	history   func(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error)
}

func (m *mockIngestor) Report(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, lat, lng float64) (domain.PositionFix, error) {
	return m.report(ctx, scope, serviceID, lat, lng)
}
func (m *mockIngestor) LatestFor(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) (domain.PositionFix, bool, error) {
	return m.latestFor(ctx, scope, serviceID)
}
func (m *mockIngestor) History(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error) {
	return m.history(ctx, scope, serviceID, limit)
}

var _ handler.PositionIngestor = (*mockIngestor)(nil)

type mockSnapshotter struct {
	snapshot func(ctx context.Context, scope domain.Scope) ([]domain.FleetEntry, error)
}

func (m *mockSnapshotter) Snapshot(ctx context.Context, scope domain.Scope) ([]domain.FleetEntry, error) {
	return m.snapshot(ctx, scope)
}

var _ handler.FleetSnapshotter = (*mockSnapshotter)(nil)

type mockScanner struct {
	scan       func(ctx context.Context, scope domain.Scope) (domain.ScanResult, error)
	listActive func(ctx context.Context, scope domain.Scope, p domain.PaginationParams) ([]domain.Alert, int64, error)
}

func (m *mockScanner) Scan(ctx context.Context, scope domain.Scope) (domain.ScanResult, error) {
	return m.scan(ctx, scope)
}
func (m *mockScanner) ListActiveAlerts(ctx context.Context, scope domain.Scope, p domain.PaginationParams) ([]domain.Alert, int64, error) {
	return m.listActive(ctx, scope, p)
}

var _ handler.AlertScanner = (*mockScanner)(nil)

type mockLedger struct {
	setStatus      func(ctx context.Context, scope domain.Scope, serviceID, workerID uuid.UUID, status domain.AttendanceStatus) (domain.AttendanceRecord, error)
	bulkSet        func(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, entries []domain.AttendanceEntry) ([]domain.BulkResult, error)
	listForService func(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) ([]domain.AttendanceRecord, error)
}

func (m *mockLedger) SetStatus(ctx context.Context, scope domain.Scope, serviceID, workerID uuid.UUID, status domain.AttendanceStatus) (domain.AttendanceRecord, error) {
	return m.setStatus(ctx, scope, serviceID, workerID, status)
}
func (m *mockLedger) BulkSet(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, entries []domain.AttendanceEntry) ([]domain.BulkResult, error) {
	return m.bulkSet(ctx, scope, serviceID, entries)
}
func (m *mockLedger) ListForService(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) ([]domain.AttendanceRecord, error) {
	return m.listForService(ctx, scope, serviceID)
}

var _ handler.AttendanceLedger = (*mockLedger)(nil)

// ---- helpers ---------------------------------------------------------------

var (
	jwtSecret = []byte("handler-test-secret")
	tenantID  = uuid.MustParse("7a1c9a52-5a8e-4c53-9e44-2f6b1f0c3d10")
)

// deps bundles the mocks a test wires; nil fields stay nil in the Server.
type deps struct {
	registry   *mockRegistry
	ingestor   *mockIngestor
	snapshot   *mockSnapshotter
	scanner    *mockScanner
	attendance *mockLedger
}

// newHTTPHandler wires a Server with the given mocks behind the real JWT
// middleware and router. This mirrors how main.go wires it in production.
func newHTTPHandler(d deps) http.Handler {
	var (
		reg handler.ServiceRegistry
		ing handler.PositionIngestor
		snp handler.FleetSnapshotter
		scn handler.AlertScanner
		att handler.AttendanceLedger
	)
	if d.registry != nil {
		reg = d.registry
	}
	if d.ingestor != nil {
		ing = d.ingestor
	}
	if d.snapshot != nil {
		snp = d.snapshot
	}
	if d.scanner != nil {
		scn = d.scanner
	}
	if d.attendance != nil {
		att = d.attendance
	}
	srv := handler.NewServer(reg, ing, snp, scn, att, nil)
	return srv.Routes(middleware.NewJWTAuth(jwtSecret))
}

func token(t *testing.T, role domain.Role) string {
	t.Helper()
	tok, err := middleware.IssueToken(jwtSecret, "user-1", domain.Scope{TenantID: tenantID, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends one request as role and returns the recorder. body may be nil.
func do(t *testing.T, h http.Handler, role domain.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func serviceFixture(state domain.ServiceState) domain.Service {
	return domain.Service{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ScheduledStart: time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC),
		Shift:          "morning",
		Stops:          []string{"Planta Norte", "Muelle 3", "Centro"},
		BusID:          uuid.New(),
		DriverID:       uuid.New(),
		State:          state,
		BusLabel:       "BUS-12",
		DriverName:     "Ana Rojas",
	}
}
