package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertType classifies an anomaly. Only AlertDelay has a detection rule in
// the core; the others are created by external collaborators.
type AlertType string

const (
	AlertDelay      AlertType = "delay"
	AlertDetour     AlertType = "detour"
	AlertMissedStop AlertType = "missed_stop"
)

// IncidentAlert returns the alert type for a named incident, e.g. "incident:flat_tire".
func IncidentAlert(kind string) AlertType {
	return AlertType("incident:" + kind)
}

// Valid reports whether t is a known type or an "incident:<kind>" type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertDelay, AlertDetour, AlertMissedStop:
		return true
	}
	kind, ok := strings.CutPrefix(string(t), "incident:")
	return ok && kind != ""
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertState is advanced only by operators, outside the core.
type AlertState string

const (
	AlertPending      AlertState = "pending"
	AlertAcknowledged AlertState = "acknowledged"
	AlertResolved     AlertState = "resolved"
)

// Alert is one detected anomaly. At most one pending alert exists per
// (service, type).
type Alert struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	Type      AlertType  `json:"type"`
	Severity  Severity   `json:"severity"`
	Message   string     `json:"message"`
	State     AlertState `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
}

// ScanResult is what one anomaly scan of a tenant reports back.
type ScanResult struct {
	Analyzed int `json:"analyzed"`
	Created  int `json:"created"`
}
