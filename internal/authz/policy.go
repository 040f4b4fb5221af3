// Package authz evaluates what an actor may do to ledger resources.
// Every rule lives in Policy.Evaluate so the order of checks is visible in one place.
package authz

import (
	"fmt"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// CapabilityBypassAll grants every permission. It never bypasses business-state
// checks such as applied payments or closed periods; those are not authorization.
const CapabilityBypassAll = "bypass_all"

// Administrative permissions outside the document modules.
const (
	PermManagePeriods       = "fiscal_periods.manage"
	PermLockPeriods         = "fiscal_periods.lock"
	PermManageCurrency      = "currency.manage"
	PermManageAccounts      = "accounts.manage"
	PermManageAPITokens     = "api_tokens.manage"
	PermViewAudit           = "audit.view"
	PermPostJournalEntries  = "journal_entries.post"
	PermReverseJournalEntry = "journal_entries.reverse"
)

// ModuleMap maps document kinds to the permission module that governs them.
type ModuleMap map[domain.DocumentKind]string

// DefaultModuleMap is the mapping used when configuration provides none.
var DefaultModuleMap = ModuleMap{
	domain.Invoice:        "sales",
	domain.Purchase:       "purchases",
	domain.JournalVoucher: "journal_vouchers",
}

// Resource is what an action targets.
type Resource struct {
	Module  string
	OwnerID string
}

// Rule names which branch of Evaluate produced a decision.
type Rule string

const (
	RuleBypassAll         Rule = "bypass_all"
	RuleMissingPermission Rule = "missing_permission"
	RuleOwner             Rule = "owner"
	RuleElevated          Rule = "elevated"
	RuleNotOwner          Rule = "not_owner"
	RuleGranted           Rule = "granted"
)

// Decision is the result of evaluating a policy.
type Decision struct {
	Allowed bool
	Rule    Rule
	Reason  string
}

// Policy evaluates permissions carried by actors.
type Policy struct {
	modules ModuleMap
}

// NewPolicy builds a Policy. A nil map falls back to DefaultModuleMap.
func NewPolicy(modules ModuleMap) *Policy {
	if modules == nil {
		modules = DefaultModuleMap
	}
	return &Policy{modules: modules}
}

// ModuleFor returns the permission module of a document kind.
func (p *Policy) ModuleFor(kind domain.DocumentKind) (string, bool) {
	m, ok := p.modules[kind]
	return m, ok
}

// IsOwner reports whether the actor created the resource.
func (p *Policy) IsOwner(actor domain.Actor, res Resource) bool {
	return actor.ID != "" && actor.ID == res.OwnerID
}

// HasElevatedPermission reports whether the actor may act on resources owned by others.
func (p *Policy) HasElevatedPermission(actor domain.Actor, module string, action domain.DocumentAction) bool {
	return actor.HasPermission(fmt.Sprintf("%s.%s_all", module, action))
}

// Evaluate decides whether actor may perform action on res.
// Order: bypass_all, module permission, ownership, elevated permission.
func (p *Policy) Evaluate(actor domain.Actor, res Resource, action domain.DocumentAction) Decision {
	if actor.HasPermission(CapabilityBypassAll) {
		return Decision{Allowed: true, Rule: RuleBypassAll}
	}
	perm := fmt.Sprintf("%s.%s", res.Module, action)
	if !actor.HasPermission(perm) {
		return Decision{Rule: RuleMissingPermission, Reason: "missing permission " + perm}
	}
	if p.IsOwner(actor, res) {
		return Decision{Allowed: true, Rule: RuleOwner}
	}
	if p.HasElevatedPermission(actor, res.Module, action) {
		return Decision{Allowed: true, Rule: RuleElevated}
	}
	return Decision{Rule: RuleNotOwner, Reason: fmt.Sprintf("only the creator or a holder of %s.%s_all may %s this record", res.Module, action, action)}
}

// Authorize is Evaluate returning an AuthorizationError on denial.
func (p *Policy) Authorize(actor domain.Actor, res Resource, action domain.DocumentAction) error {
	d := p.Evaluate(actor, res, action)
	if !d.Allowed {
		return apperrors.NewForbiddenError(d.Reason)
	}
	return nil
}

// Require checks a single administrative permission, honouring bypass_all.
func (p *Policy) Require(actor domain.Actor, permission string) error {
	if actor.HasPermission(CapabilityBypassAll) || actor.HasPermission(permission) {
		return nil
	}
	return apperrors.NewForbiddenError("missing permission " + permission)
}
