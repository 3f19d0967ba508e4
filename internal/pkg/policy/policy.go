package policy

import (
	"github.com/samber/lo"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
)

// RoleSet lists the roles an operation accepts. SUPERADMIN does not satisfy a
// set unless it is listed.
type RoleSet []models.Role

// Roles builds a RoleSet.
func Roles(roles ...models.Role) RoleSet {
	return RoleSet(roles)
}

var (
	SuperAdminOnly = Roles(models.RoleSuperAdmin)
	AdminsOnly     = Roles(models.RoleAdmin, models.RoleSuperAdmin)
	AnyMember      = Roles(models.RoleMember, models.RoleAdmin, models.RoleSuperAdmin)
)

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r models.Role) bool {
	return lo.Contains(s, r)
}

// Strings returns the roles as plain strings for error payloads.
func (s RoleSet) Strings() []string {
	return lo.Map(s, func(r models.Role, _ int) string { return string(r) })
}

// DenyReason is the machine readable cause of a denial.
type DenyReason string

const (
	ReasonNotAuthenticated DenyReason = "NOT_AUTHENTICATED"
	ReasonInsufficientRole DenyReason = "INSUFFICIENT_ROLE"
)

// Decision is the result of Authorize.
type Decision struct {
	Allowed  bool
	Reason   DenyReason
	Required RoleSet
}

// Authorize allows iff the identity is present and its role is in required.
func Authorize(id *identity.Identity, required RoleSet) Decision {
	if id == nil {
		return Decision{Reason: ReasonNotAuthenticated, Required: required}
	}
	if !required.Contains(id.Role) {
		return Decision{Reason: ReasonInsufficientRole, Required: required}
	}
	return Decision{Allowed: true, Required: required}
}

// Err converts a denial to an apperror; nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonNotAuthenticated:
		return apperror.New(apperror.KindUnauthenticated, "authentication required")
	default:
		return apperror.New(apperror.KindAuthorizationDenied, "role not permitted for this operation").
			With("reason", string(d.Reason)).
			With("required_roles", d.Required.Strings())
	}
}
