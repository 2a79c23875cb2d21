// Package service contains the business logic of the shuttle fleet core.
// Services validate inputs, enforce lifecycle and tenant rules, and
// orchestrate repo calls. No SQL lives here; services depend on repo
// interfaces, not implementations. Every method takes the caller's
// domain.Scope explicitly.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/repo"
)

// Registry owns the lifecycle of Services.
type Registry struct {
	repo      repo.ServiceRepo
	snapshots SnapshotInvalidator
}

// NewRegistry constructs a Registry backed by the provided ServiceRepo.
func NewRegistry(r repo.ServiceRepo) *Registry {
	return &Registry{repo: r}
}

// SetSnapshotInvalidator makes every state change drop the tenant's cached
// fleet snapshot. Call it before serving requests.
func (s *Registry) SetSnapshotInvalidator(inv SnapshotInvalidator) {
	s.snapshots = inv
}

// Create validates and persists a new scheduled service in the caller's tenant.
// Returns domain.ErrValidation if input violates business rules.
func (s *Registry) Create(ctx context.Context, scope domain.Scope, svc domain.Service) (domain.Service, error) {
	svc.TenantID = scope.TenantID
	svc.State = domain.StateScheduled
	svc.Shift = strings.TrimSpace(svc.Shift)
	svc.Stops = trimStops(svc.Stops)

	if err := validateService(svc); err != nil {
		return domain.Service{}, err
	}
	result, err := s.repo.Create(ctx, svc)
	if err != nil {
		return domain.Service{}, fmt.Errorf("service.Registry.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single service of the caller's tenant.
func (s *Registry) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (domain.Service, error) {
	result, err := s.repo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		return domain.Service{}, fmt.Errorf("service.Registry.GetByID: %w", err)
	}
	return result, nil
}

// Transition moves a service to target. Requesting the state the service is
// already in succeeds without writing, so a driver retrying "start" after a
// dropped connection gets the same answer twice.
// Returns domain.ErrInvalidTransition for edges outside the lifecycle and
// domain.ErrNotFound if the service is not in the caller's tenant.
func (s *Registry) Transition(ctx context.Context, scope domain.Scope, id uuid.UUID, target domain.ServiceState) (domain.Service, error) {
	if !target.Valid() {
		return domain.Service{}, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, target)
	}

	var (
		result  domain.Service
		written bool
	)
	err := retryOnConflict(ctx, nil, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, scope.TenantID, id)
		if err != nil {
			return err
		}
		if current.State == target {
			result = current
			return nil
		}
		if !current.State.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.State, target)
		}
		// A concurrent transition makes this CAS fail with ErrConflict and
		// the next attempt re-evaluates against the new state.
		result, err = s.repo.UpdateState(ctx, scope.TenantID, id, current.State, target)
		written = err == nil
		return err
	})
	if err != nil {
		return domain.Service{}, fmt.Errorf("service.Registry.Transition: %w", err)
	}
	if written {
		invalidate(ctx, s.snapshots, scope.TenantID)
	}
	return result, nil
}

// Clone copies the shift, stops, bus and driver of an existing service into a
// new scheduled service on newDate, keeping the original time of day.
// No history (positions, alerts, attendance) is carried over.
func (s *Registry) Clone(ctx context.Context, scope domain.Scope, id uuid.UUID, newDate time.Time) (domain.Service, error) {
	if newDate.IsZero() {
		return domain.Service{}, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	src, err := s.repo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		return domain.Service{}, fmt.Errorf("service.Registry.Clone: %w", err)
	}

	start := src.ScheduledStart
	y, m, d := newDate.Date()
	clone := domain.Service{
		ScheduledStart: time.Date(y, m, d, start.Hour(), start.Minute(), start.Second(), 0, start.Location()),
		Shift:          src.Shift,
		Stops:          append([]string(nil), src.Stops...),
		BusID:          src.BusID,
		DriverID:       src.DriverID,
	}
	return s.Create(ctx, scope, clone)
}

// ListActive returns every in-progress service of the caller's tenant.
// Always returns a non-nil slice.
func (s *Registry) ListActive(ctx context.Context, scope domain.Scope) ([]domain.Service, error) {
	services, err := s.repo.ListByState(ctx, scope.TenantID, domain.StateInProgress)
	if err != nil {
		return nil, fmt.Errorf("service.Registry.ListActive: %w", err)
	}
	if services == nil {
		return []domain.Service{}, nil
	}
	return services, nil
}

func trimStops(stops []string) []string {
	out := make([]string, len(stops))
	for i, stop := range stops {
		out[i] = strings.TrimSpace(stop)
	}
	return out
}

// validateService enforces the rules shared by Create and Clone.
//   - at least two stops, none blank
//   - a bus and a driver are assigned
//   - the scheduled start is set
func validateService(svc domain.Service) error {
	if len(svc.Stops) < 2 {
		return fmt.Errorf("%w: stops must have at least 2 entries", domain.ErrValidation)
	}
	for _, stop := range svc.Stops {
		if stop == "" {
			return fmt.Errorf("%w: stop names must not be blank", domain.ErrValidation)
		}
	}
	if svc.BusID == uuid.Nil {
		return fmt.Errorf("%w: bus_id is required", domain.ErrValidation)
	}
	if svc.DriverID == uuid.Nil {
		return fmt.Errorf("%w: driver_id is required", domain.ErrValidation)
	}
	if svc.ScheduledStart.IsZero() {
		return fmt.Errorf("%w: scheduled_start is required", domain.ErrValidation)
	}
	return nil
}
