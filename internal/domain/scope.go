package domain

import "github.com/google/uuid"

// Role is the caller's role within its tenant, as asserted by the auth
// collaborator.
type Role string

const (
	RoleDriver     Role = "driver"
	RoleSupervisor Role = "supervisor"
	RolePlanner    Role = "planner"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDriver, RoleSupervisor, RolePlanner, RoleAdmin:
		return true
	}
	return false
}

// Scope identifies who is calling. Every service method takes one explicitly;
// nothing in the core reads tenant or role from ambient state.
type Scope struct {
	TenantID uuid.UUID
	Role     Role
}
