package domain

import "github.com/google/uuid"

// Tenant is one customer company. DelayToleranceMinutes is nil when the
// tenant has not configured one and the platform default applies.
type Tenant struct {
	ID                    uuid.UUID
	Name                  string
	DelayToleranceMinutes *int
}
