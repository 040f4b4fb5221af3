package authz_test

import (
	"testing"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Evaluate(t *testing.T) {
	policy := authz.NewPolicy(nil)
	module, ok := policy.ModuleFor(domain.Invoice)
	assert.True(t, ok)
	res := authz.Resource{Module: module, OwnerID: "owner-1"}

	tests := []struct {
		name    string
		actor   domain.Actor
		allowed bool
		rule    authz.Rule
	}{
		{
			name:    "bypass_all wins without module permission",
			actor:   domain.Actor{ID: "admin", Permissions: []string{authz.CapabilityBypassAll}},
			allowed: true,
			rule:    authz.RuleBypassAll,
		},
		{
			name:  "no module permission",
			actor: domain.Actor{ID: "owner-1"},
			rule:  authz.RuleMissingPermission,
		},
		{
			name:    "owner with module permission",
			actor:   domain.Actor{ID: "owner-1", Permissions: []string{"sales.delete"}},
			allowed: true,
			rule:    authz.RuleOwner,
		},
		{
			name:    "other user with elevated permission",
			actor:   domain.Actor{ID: "manager", Permissions: []string{"sales.delete", "sales.delete_all"}},
			allowed: true,
			rule:    authz.RuleElevated,
		},
		{
			name:  "other user without elevated permission",
			actor: domain.Actor{ID: "clerk", Permissions: []string{"sales.delete"}},
			rule:  authz.RuleNotOwner,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Evaluate(tt.actor, res, domain.ActionDelete)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestPolicy_AuthorizeReturnsForbidden(t *testing.T) {
	policy := authz.NewPolicy(authz.ModuleMap{domain.Purchase: "procurement"})
	module, ok := policy.ModuleFor(domain.Purchase)
	assert.True(t, ok)
	assert.Equal(t, "procurement", module)

	err := policy.Authorize(domain.Actor{ID: "x"}, authz.Resource{Module: module}, domain.ActionReverse)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, ok = policy.ModuleFor(domain.Invoice)
	assert.False(t, ok)
}

func TestPolicy_Require(t *testing.T) {
	policy := authz.NewPolicy(nil)

	assert.NoError(t, policy.Require(domain.Actor{Permissions: []string{authz.PermLockPeriods}}, authz.PermLockPeriods))
	assert.NoError(t, policy.Require(domain.Actor{Permissions: []string{authz.CapabilityBypassAll}}, authz.PermLockPeriods))
	assert.ErrorIs(t, policy.Require(domain.Actor{}, authz.PermLockPeriods), apperrors.ErrForbidden)
}
