// Package handler implements the HTTP handlers for the shuttle fleet API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, service.go, etc.) but all share the same Server struct so
// they can access its dependencies. Routes wires them onto a chi router.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// ServiceRegistry defines the lifecycle operations the service handlers
// depend on. Defining the interface here (in the consumer package) lets
// handler tests inject a mock without touching the database or service layer.
type ServiceRegistry interface {
	Create(ctx context.Context, scope domain.Scope, svc domain.Service) (domain.Service, error)
	GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (domain.Service, error)
	Transition(ctx context.Context, scope domain.Scope, id uuid.UUID, target domain.ServiceState) (domain.Service, error)
	Clone(ctx context.Context, scope domain.Scope, id uuid.UUID, newDate time.Time) (domain.Service, error)
	ListActive(ctx context.Context, scope domain.Scope) ([]domain.Service, error)
}

// PositionIngestor defines the position operations.
type PositionIngestor interface {
	Report(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, lat, lng float64) (domain.PositionFix, error)
	LatestFor(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) (domain.PositionFix, bool, error)
	History(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error)
}

// FleetSnapshotter builds the live map.
type FleetSnapshotter interface {
	Snapshot(ctx context.Context, scope domain.Scope) ([]domain.FleetEntry, error)
}

// AlertScanner runs the delay scan and lists its alerts.
type AlertScanner interface {
	Scan(ctx context.Context, scope domain.Scope) (domain.ScanResult, error)
	ListActiveAlerts(ctx context.Context, scope domain.Scope, p domain.PaginationParams) ([]domain.Alert, int64, error)
}

// AttendanceLedger defines the check-in operations.
type AttendanceLedger interface {
	SetStatus(ctx context.Context, scope domain.Scope, serviceID, workerID uuid.UUID, status domain.AttendanceStatus) (domain.AttendanceRecord, error)
	BulkSet(ctx context.Context, scope domain.Scope, serviceID uuid.UUID, entries []domain.AttendanceEntry) ([]domain.BulkResult, error)
	ListForService(ctx context.Context, scope domain.Scope, serviceID uuid.UUID) ([]domain.AttendanceRecord, error)
}

// Server holds every dependency of the HTTP surface.
type Server struct {
	services   ServiceRegistry
	positions  PositionIngestor
	fleet      FleetSnapshotter
	alerts     AlertScanner
	attendance AttendanceLedger
	log        *slog.Logger
}

// NewServer constructs the Server with all its dependencies. log defaults to
// slog.Default(). Any servicer may be nil when a test only exercises the others.
func NewServer(services ServiceRegistry, positions PositionIngestor, fleet FleetSnapshotter, alerts AlertScanner, attendance AttendanceLedger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		services:   services,
		positions:  positions,
		fleet:      fleet,
		alerts:     alerts,
		attendance: attendance,
		log:        log,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil, nil)
}
