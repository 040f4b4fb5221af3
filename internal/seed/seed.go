// Package seed loads a chart of accounts, currency policies and fiscal periods from a
// YAML file into an empty (or partially seeded) ledger. Seeding is idempotent: records
// that already exist are skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// Account is one chart of accounts row.
type Account struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Parent      string `yaml:"parent"`
	Description string `yaml:"description"`
}

// Policy is a currency policy. At most one may be marked active.
type Policy struct {
	Name                       string `yaml:"name"`
	Type                       string `yaml:"type"`
	Timing                     string `yaml:"timing"`
	ReferenceCurrency          string `yaml:"reference_currency"`
	AllowMultiCurrencyBalances bool   `yaml:"allow_multi_currency_balances"`
	RevaluationEnabled         bool   `yaml:"revaluation_enabled"`
	RevaluationFrequency       string `yaml:"revaluation_frequency"`
	ExchangeRateSource         string `yaml:"exchange_rate_source"`
	Active                     bool   `yaml:"active"`
}

// Period is a fiscal period with YYYY-MM-DD bounds.
type Period struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// File is the seed document.
type File struct {
	Accounts         []Account `yaml:"accounts"`
	CurrencyPolicies []Policy  `yaml:"currency_policies"`
	FiscalPeriods    []Period  `yaml:"fiscal_periods"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	codes := make(map[string]bool, len(f.Accounts))
	for _, a := range f.Accounts {
		if a.Code == "" || a.Name == "" {
			return fmt.Errorf("account %q: code and name are required", a.Code)
		}
		if !domain.AccountType(a.Type).IsValid() {
			return fmt.Errorf("account %s: unknown type %q", a.Code, a.Type)
		}
		if codes[a.Code] {
			return fmt.Errorf("account %s: duplicate code", a.Code)
		}
		codes[a.Code] = true
	}
	active := 0
	for _, p := range f.CurrencyPolicies {
		if p.Active {
			active++
		}
		if p.ExchangeRateSource != "" && !domain.RateSource(p.ExchangeRateSource).IsExternal() {
			return fmt.Errorf("currency policy %s: unknown exchange rate source %q", p.Name, p.ExchangeRateSource)
		}
	}
	if active > 1 {
		return fmt.Errorf("%d currency policies are marked active, at most one may be", active)
	}
	for _, p := range f.FiscalPeriods {
		if _, err := time.Parse(time.DateOnly, p.Start); err != nil {
			return fmt.Errorf("fiscal period %s: start: %w", p.Name, err)
		}
		if _, err := time.Parse(time.DateOnly, p.End); err != nil {
			return fmt.Errorf("fiscal period %s: end: %w", p.Name, err)
		}
	}
	return nil
}

// OrderAccounts returns the accounts with every parent ahead of its children.
// Accounts whose parent is not in the file keep their relative order.
func OrderAccounts(accounts []Account) []Account {
	byCode := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	depth := func(a Account) int {
		d := 0
		seen := map[string]bool{a.Code: true}
		for p, ok := byCode[a.Parent]; ok && !seen[p.Code]; p, ok = byCode[p.Parent] {
			seen[p.Code] = true
			d++
		}
		return d
	}
	ordered := make([]Account, len(accounts))
	copy(ordered, accounts)
	sort.SliceStable(ordered, func(i, j int) bool { return depth(ordered[i]) < depth(ordered[j]) })
	return ordered
}

// Targets are the services a seed is applied through.
type Targets struct {
	Accounts portssvc.AccountWriterSvc
	Currency portssvc.CurrencyPolicyAdminSvc
	Periods  portssvc.FiscalPeriodAdminSvc
}

// Result counts what Apply did.
type Result struct {
	AccountsCreated int
	AccountsSkipped int
	PoliciesCreated int
	PoliciesSkipped int
	PolicyActivated string
	PeriodsCreated  int
	PeriodsSkipped  int
}

// Apply creates the seeded records as actor.
func Apply(ctx context.Context, f *File, t Targets, actor domain.Actor) (*Result, error) {
	res := &Result{}

	for _, a := range OrderAccounts(f.Accounts) {
		_, err := t.Accounts.CreateAccount(ctx, actor, dto.CreateAccountRequest{
			Code:        a.Code,
			Name:        a.Name,
			AccountType: domain.AccountType(a.Type),
			ParentCode:  a.Parent,
			Description: a.Description,
		})
		switch {
		case err == nil:
			res.AccountsCreated++
		case errors.Is(err, apperrors.ErrDuplicate):
			res.AccountsSkipped++
		default:
			return res, fmt.Errorf("account %s: %w", a.Code, err)
		}
	}

	if len(f.CurrencyPolicies) > 0 {
		existing, err := t.Currency.ListPolicies(ctx)
		if err != nil {
			return res, err
		}
		byName := make(map[string]domain.CurrencyPolicy, len(existing))
		for _, p := range existing {
			byName[p.Name] = p
		}
		for _, p := range f.CurrencyPolicies {
			policy, found := byName[p.Name]
			if found {
				res.PoliciesSkipped++
			} else {
				created, err := t.Currency.CreatePolicy(ctx, actor, dto.CreateCurrencyPolicyRequest{
					Name:                       p.Name,
					PolicyType:                 domain.PolicyType(p.Type),
					ConversionTiming:           domain.ConversionTiming(p.Timing),
					ReferenceCurrency:          p.ReferenceCurrency,
					AllowMultiCurrencyBalances: p.AllowMultiCurrencyBalances,
					RevaluationEnabled:         p.RevaluationEnabled,
					RevaluationFrequency:       p.RevaluationFrequency,
					ExchangeRateSource:         domain.RateSource(p.ExchangeRateSource),
				})
				if err != nil {
					return res, fmt.Errorf("currency policy %s: %w", p.Name, err)
				}
				policy = *created
				res.PoliciesCreated++
			}
			if p.Active && !policy.IsActive {
				if _, err := t.Currency.ActivatePolicy(ctx, actor, policy.PolicyID); err != nil {
					return res, fmt.Errorf("activate currency policy %s: %w", p.Name, err)
				}
				res.PolicyActivated = p.Name
			}
		}
	}

	for _, p := range f.FiscalPeriods {
		start, _ := time.Parse(time.DateOnly, p.Start)
		end, _ := time.Parse(time.DateOnly, p.End)
		_, err := t.Periods.CreatePeriod(ctx, actor, dto.CreateFiscalPeriodRequest{Name: p.Name, StartDate: start, EndDate: end})
		switch {
		case err == nil:
			res.PeriodsCreated++
		case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
			res.PeriodsSkipped++
		default:
			return res, fmt.Errorf("fiscal period %s: %w", p.Name, err)
		}
	}
	return res, nil
}
