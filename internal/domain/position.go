package domain

import (
	"time"

	"github.com/google/uuid"
)

// PositionFix is one GPS sample reported by the driver of an active service.
// Fixes are append-only: they are never updated or deleted by the core.
type PositionFix struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CapturedAt time.Time `json:"captured_at"` // assigned by the server, never the client
}
