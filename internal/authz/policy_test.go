package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranchops/internal/domain"
	apperrors "ranchops/pkg/errors"
)

func TestParseRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin, RoleTreasurer}, ParseRoles("Admin, treasurer"))
	assert.Equal(t, []Role{RoleManager}, ParseRoles("manager,wrangler"))
	assert.Nil(t, ParseRoles(""))
	assert.Nil(t, ParseRoles("foreman"))
}

func TestActorIsStaff(t *testing.T) {
	assert.False(t, (&Actor{}).IsStaff())
	assert.True(t, (&Actor{IsAdmin: true}).IsStaff())
	assert.True(t, (&Actor{Roles: []Role{RoleStaff}}).IsStaff())
}

func TestActorHasRole(t *testing.T) {
	actor := &Actor{Roles: []Role{RoleStaff, RoleTreasurer}}
	assert.True(t, actor.HasRole(RoleTreasurer))
	assert.True(t, actor.HasRole(RoleAdmin, RoleTreasurer))
	assert.False(t, actor.HasRole(RoleAdmin, RoleManager))
}

func TestAuthorizeRecord(t *testing.T) {
	policy := Policy{}

	tests := []struct {
		name     string
		actor    *Actor
		txType   domain.TransactionType
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "nil actor rejected for investment",
			actor:    nil,
			txType:   domain.TransactionInvestment,
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:     "nil actor rejected for payment",
			actor:    nil,
			txType:   domain.TransactionPayment,
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:   "any resolved actor may record an investment",
			actor:  &Actor{ID: 1, Username: "fhand"},
			txType: domain.TransactionInvestment,
		},
		{
			name:     "staff role alone cannot record a payment",
			actor:    &Actor{ID: 2, Roles: []Role{RoleStaff}},
			txType:   domain.TransactionPayment,
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:   "treasurer role may record a payment",
			actor:  &Actor{ID: 3, Roles: []Role{RoleTreasurer}},
			txType: domain.TransactionPayment,
		},
		{
			name:   "manager role may record a payment",
			actor:  &Actor{ID: 4, Roles: []Role{RoleManager}},
			txType: domain.TransactionPayment,
		},
		{
			name:   "admin flag may record a payment without roles",
			actor:  &Actor{ID: 5, IsAdmin: true},
			txType: domain.TransactionPayment,
		},
		{
			name:     "unknown type is a validation error",
			actor:    &Actor{ID: 6, IsAdmin: true},
			txType:   domain.TransactionType("transfer"),
			wantCode: apperrors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.AuthorizeRecord(tt.actor, tt.txType)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
