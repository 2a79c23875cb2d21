package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is a worker's presence on a service.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceJustified AttendanceStatus = "justified"
)

// Valid reports whether s is one of the three statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceJustified:
		return true
	}
	return false
}

// AttendanceRecord is the presence of one worker on one service.
// Unique per (service, worker). CheckInAt is nil unless Status is present.
type AttendanceRecord struct {
	ID        uuid.UUID        `json:"id"`
	TenantID  uuid.UUID        `json:"tenant_id"`
	ServiceID uuid.UUID        `json:"service_id"`
	WorkerID  uuid.UUID        `json:"worker_id"`
	Status    AttendanceStatus `json:"status"`
	CheckInAt *time.Time       `json:"check_in_at,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// AttendanceEntry is one line of a bulk check-in.
type AttendanceEntry struct {
	WorkerID uuid.UUID        `json:"worker_id"`
	Status   AttendanceStatus `json:"status"`
}

// BulkResult is the per-entry outcome of a bulk check-in.
// Exactly one of Record or Err is meaningful.
type BulkResult struct {
	WorkerID uuid.UUID
	Record   AttendanceRecord
	Err      error
}
