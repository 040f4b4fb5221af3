package domain

import (
	"fmt"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
)

// PolicyType is the organisation-wide stance on foreign currency.
type PolicyType string

const (
	// UnitOfMeasure treats currencies as units; no conversion, multi-currency balances allowed.
	UnitOfMeasure PolicyType = "UNIT_OF_MEASURE"
	// ValuedAsset carries foreign balances at a valuation that can be revalued.
	ValuedAsset PolicyType = "VALUED_ASSET"
	// Normalization converts everything into the reference currency at posting.
	Normalization PolicyType = "NORMALIZATION"
)

// ConversionTiming is the lifecycle stage at which a policy converts amounts.
type ConversionTiming string

const (
	TimingPosting    ConversionTiming = "POSTING"
	TimingSettlement ConversionTiming = "SETTLEMENT"
	TimingReporting  ConversionTiming = "REPORTING"
	TimingNever      ConversionTiming = "NEVER"
)

// IsValid reports whether t is a known timing.
func (t ConversionTiming) IsValid() bool {
	switch t {
	case TimingPosting, TimingSettlement, TimingReporting, TimingNever:
		return true
	}
	return false
}

type policyTypeTraits struct {
	requiresConversion    bool
	supportsMultiCurrency bool
	label                 string
}

var policyTypes = map[PolicyType]policyTypeTraits{
	UnitOfMeasure: {requiresConversion: false, supportsMultiCurrency: true, label: "Unit of measure"},
	ValuedAsset:   {requiresConversion: true, supportsMultiCurrency: true, label: "Valued asset"},
	Normalization: {requiresConversion: true, supportsMultiCurrency: false, label: "Normalization"},
}

// IsValid reports whether t is a known policy type.
func (t PolicyType) IsValid() bool {
	_, ok := policyTypes[t]
	return ok
}

// RequiresConversion reports whether the policy type ever converts amounts.
func (t PolicyType) RequiresConversion() bool {
	return policyTypes[t].requiresConversion
}

// SupportsMultiCurrency reports whether accounts may hold balances in several currencies.
func (t PolicyType) SupportsMultiCurrency() bool {
	return policyTypes[t].supportsMultiCurrency
}

// Label is a human readable name.
func (t PolicyType) Label() string {
	return policyTypes[t].label
}

// CurrencyPolicy is the currency configuration. Exactly one policy is active at a time.
type CurrencyPolicy struct {
	PolicyID                   string           `json:"policyID"`
	Name                       string           `json:"name"`
	PolicyType                 PolicyType       `json:"policyType"`
	ConversionTiming           ConversionTiming `json:"conversionTiming"`
	ReferenceCurrency          string           `json:"referenceCurrency"`
	AllowMultiCurrencyBalances bool             `json:"allowMultiCurrencyBalances"`
	RevaluationEnabled         bool             `json:"revaluationEnabled"`
	RevaluationFrequency       string           `json:"revaluationFrequency,omitempty"`
	ExchangeRateSource         RateSource       `json:"exchangeRateSource"`
	IsActive                   bool             `json:"isActive"`
	AuditFields
}

// Validate enforces the type/timing invariants:
// NORMALIZATION converts at posting and forbids multi-currency balances;
// UNIT_OF_MEASURE never converts before reporting and allows multi-currency balances.
func (p CurrencyPolicy) Validate() error {
	if !p.PolicyType.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown policy type %q", p.PolicyType))
	}
	if !p.ConversionTiming.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown conversion timing %q", p.ConversionTiming))
	}
	if p.ReferenceCurrency == "" {
		return apperrors.NewValidationError("reference currency is required")
	}
	if !p.ExchangeRateSource.IsExternal() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown exchange rate source %q", p.ExchangeRateSource))
	}
	switch p.PolicyType {
	case Normalization:
		if p.ConversionTiming != TimingPosting {
			return apperrors.NewValidationError("a NORMALIZATION policy must convert at POSTING")
		}
		if p.AllowMultiCurrencyBalances {
			return apperrors.NewValidationError("a NORMALIZATION policy cannot allow multi-currency balances")
		}
	case UnitOfMeasure:
		if p.ConversionTiming != TimingNever && p.ConversionTiming != TimingReporting {
			return apperrors.NewValidationError("a UNIT_OF_MEASURE policy converts only at REPORTING or NEVER")
		}
		if !p.AllowMultiCurrencyBalances {
			return apperrors.NewValidationError("a UNIT_OF_MEASURE policy must allow multi-currency balances")
		}
	}
	if p.RevaluationEnabled && p.PolicyType != ValuedAsset {
		return apperrors.NewValidationError("revaluation is only available for VALUED_ASSET policies")
	}
	return nil
}

// RequiresPostingConversion reports whether amounts are converted when posted.
func (p CurrencyPolicy) RequiresPostingConversion() bool {
	return p.PolicyType.RequiresConversion() && p.ConversionTiming == TimingPosting
}

// AllowsMultiCurrencyBalances combines the flag with what the type supports.
func (p CurrencyPolicy) AllowsMultiCurrencyBalances() bool {
	return p.AllowMultiCurrencyBalances && p.PolicyType.SupportsMultiCurrency()
}

// PolicySnapshot is the frozen copy of a policy stored with each converted entry.
type PolicySnapshot struct {
	PolicyID          string           `json:"policyID"`
	PolicyType        PolicyType       `json:"policyType"`
	ConversionTiming  ConversionTiming `json:"conversionTiming"`
	ReferenceCurrency string           `json:"referenceCurrency"`
	RateSource        RateSource       `json:"rateSource,omitempty"`
}

// Snapshot freezes the fields that influenced a conversion decision.
func (p CurrencyPolicy) Snapshot() PolicySnapshot {
	return PolicySnapshot{
		PolicyID:          p.PolicyID,
		PolicyType:        p.PolicyType,
		ConversionTiming:  p.ConversionTiming,
		ReferenceCurrency: p.ReferenceCurrency,
		RateSource:        p.ExchangeRateSource,
	}
}
