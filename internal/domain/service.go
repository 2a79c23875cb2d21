// Package domain contains the core data types for the shuttle fleet core.
// It depends only on uuid and is imported by every other internal package
// (repo, service, handler, cache).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceState is the lifecycle state of a Service.
type ServiceState string

const (
	StateScheduled  ServiceState = "scheduled"
	StateInProgress ServiceState = "in_progress"
	StateFinished   ServiceState = "finished"
	StateCancelled  ServiceState = "cancelled"
)

// Valid reports whether s is one of the four lifecycle states.
func (s ServiceState) Valid() bool {
	switch s {
	case StateScheduled, StateInProgress, StateFinished, StateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether from -> to is an allowed lifecycle edge.
// Same-state requests are not edges; callers treat them as no-ops.
func (s ServiceState) CanTransitionTo(to ServiceState) bool {
	switch s {
	case StateScheduled:
		return to == StateInProgress || to == StateCancelled
	case StateInProgress:
		return to == StateFinished || to == StateCancelled
	}
	return false
}

// Service is one scheduled run of a bus along an ordered list of stops.
// BusLabel and DriverName are read-side joins from the tenant's bus and
// driver reference tables; they are ignored on write.
type Service struct {
	ID             uuid.UUID    `json:"id"`
	TenantID       uuid.UUID    `json:"tenant_id"`
	ScheduledStart time.Time    `json:"scheduled_start"`
	Shift          string       `json:"shift"`
	Stops          []string     `json:"stops"`
	BusID          uuid.UUID    `json:"bus_id"`
	DriverID       uuid.UUID    `json:"driver_id"`
	State          ServiceState `json:"state"`
	BusLabel       string       `json:"bus_label,omitempty"`
	DriverName     string       `json:"driver_name,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// RouteSummary returns "first → last" for the service's stops.
func (s Service) RouteSummary() string {
	switch len(s.Stops) {
	case 0:
		return ""
	case 1:
		return s.Stops[0]
	}
	return s.Stops[0] + " → " + s.Stops[len(s.Stops)-1]
}
