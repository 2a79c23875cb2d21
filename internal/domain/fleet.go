package domain

import (
	"time"

	"github.com/google/uuid"
)

// FleetEntry is one bus on the live map: an in-progress service joined with
// its most recent position fix.
type FleetEntry struct {
	ServiceID    uuid.UUID `json:"service_id"`
	BusLabel     string    `json:"bus_label"`
	DriverName   string    `json:"driver_name"`
	RouteSummary string    `json:"route_summary"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	FixTimestamp time.Time `json:"fix_timestamp"`
	Occupancy    int       `json:"occupancy"`
}
