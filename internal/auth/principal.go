package auth

import (
	"github.com/google/uuid"
)

// Role is the privilege tier attached to a principal.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole maps a stored role string to a Role, reporting whether the
// value is one of the known tiers.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// Principal is the resolved identity for one request: who, at what
// tier, and inside which organization. SuperAdmins carry no
// organization because their scope is platform-wide.
type Principal struct {
	UserID         uuid.UUID
	Role           Role
	OrganizationID *uuid.UUID
}

func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// Scoped reports whether the principal can be used for tenant-scoped
// data access: user and admin tiers must carry an organization.
// A principal resolved from legacy cookie evidence has no organization
// and therefore never reaches tenant data.
func (p Principal) Scoped() bool {
	if p.Role == RoleSuperAdmin {
		return p.OrganizationID == nil
	}
	return p.OrganizationID != nil
}
