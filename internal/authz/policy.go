package authz

import (
	"strings"

	"ranchops/internal/domain"
	apperrors "ranchops/pkg/errors"
)

// Role is a typed staff role. Roles are stored on the user record as a
// comma-separated list and parsed into this enumeration.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleTreasurer Role = "treasurer"
	RoleStaff     Role = "staff"
)

var knownRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleManager:   true,
	RoleTreasurer: true,
	RoleStaff:     true,
}

// ParseRoles parses a comma-separated role list, dropping unknown names.
func ParseRoles(s string) []Role {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		role := Role(strings.ToLower(strings.TrimSpace(part)))
		if knownRoles[role] {
			roles = append(roles, role)
		}
	}
	return roles
}

// Actor is the resolved identity of a caller.
type Actor struct {
	ID          uint
	Username    string
	DisplayName string
	IsAdmin     bool
	Roles       []Role
}

// HasRole reports whether the actor holds any of the given roles.
func (a *Actor) HasRole(roles ...Role) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsStaff reports whether the actor may access staff endpoints.
func (a *Actor) IsStaff() bool {
	return a.IsAdmin || len(a.Roles) > 0
}

// paymentRoles is the privileged set allowed to record payments.
var paymentRoles = []Role{RoleAdmin, RoleManager, RoleTreasurer}

// Policy maps transaction types to the roles authorized to record them.
// Payments imply real money movement and carry the stricter gate;
// investments (pledges) only require a resolved actor.
type Policy struct{}

// AuthorizeRecord checks that actor may record a transaction of the given
// type. A nil actor is rejected for any type.
func (Policy) AuthorizeRecord(actor *Actor, txType domain.TransactionType) error {
	if actor == nil {
		return apperrors.New(apperrors.ErrCodeForbidden, "authentication required to record transactions")
	}

	switch txType {
	case domain.TransactionInvestment:
		return nil
	case domain.TransactionPayment:
		if actor.IsAdmin || actor.HasRole(paymentRoles...) {
			return nil
		}
		return apperrors.New(apperrors.ErrCodeForbidden, "insufficient permissions to record a payment")
	default:
		return apperrors.Newf(apperrors.ErrCodeValidation, "unknown transaction type: %s", txType)
	}
}
