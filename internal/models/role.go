package models

import (
	"fmt"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

// RoleTier is one of the four fixed per-application roles. The platform-wide
// role lives in token claims only and is never stored as a tier.
type RoleTier string

const (
	RoleTierSuperAdmin RoleTier = constants.RoleSuperAdmin
	RoleTierAdmin      RoleTier = constants.RoleAdmin
	RoleTierReadWrite  RoleTier = constants.RoleReadWrite
	RoleTierReadOnly   RoleTier = constants.RoleReadOnly
)

// AllRoleTiers is ordered from most to least privileged. Client provisioning
// creates every tier, so the order is also the creation order.
var AllRoleTiers = []RoleTier{
	RoleTierSuperAdmin,
	RoleTierAdmin,
	RoleTierReadWrite,
	RoleTierReadOnly,
}

// ParseRoleTier rejects anything outside the closed vocabulary. There is no
// defaulting: an unknown role string is a validation failure, not read-only.
func ParseRoleTier(s string) (RoleTier, error) {
	switch RoleTier(s) {
	case RoleTierSuperAdmin, RoleTierAdmin, RoleTierReadWrite, RoleTierReadOnly:
		return RoleTier(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r RoleTier) String() string {
	return string(r)
}
