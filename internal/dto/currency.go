package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCurrencyPolicyRequest defines a new (inactive) currency policy.
type CreateCurrencyPolicyRequest struct {
	Name                       string                  `json:"name" binding:"required,max=100"`
	PolicyType                 domain.PolicyType       `json:"policyType" binding:"required,oneof=UNIT_OF_MEASURE VALUED_ASSET NORMALIZATION"`
	ConversionTiming           domain.ConversionTiming `json:"conversionTiming" binding:"required,oneof=POSTING SETTLEMENT REPORTING NEVER"`
	ReferenceCurrency          string                  `json:"referenceCurrency" binding:"required,iso4217"`
	AllowMultiCurrencyBalances bool                    `json:"allowMultiCurrencyBalances"`
	RevaluationEnabled         bool                    `json:"revaluationEnabled"`
	RevaluationFrequency       string                  `json:"revaluationFrequency,omitempty" binding:"omitempty,oneof=daily weekly monthly quarterly yearly"`
	ExchangeRateSource         domain.RateSource       `json:"exchangeRateSource,omitempty" binding:"omitempty,oneof=MANUAL CENTRAL_BANK API"`
}

// CurrencyPolicyStatus summarises the active policy.
type CurrencyPolicyStatus struct {
	ActivePolicy                *domain.CurrencyPolicy `json:"activePolicy,omitempty"`
	ReferenceCurrency           string                 `json:"referenceCurrency"`
	RequiresPostingConversion   bool                   `json:"requiresPostingConversion"`
	AllowsMultiCurrencyBalances bool                   `json:"allowsMultiCurrencyBalances"`
	RevaluationEnabled          bool                   `json:"revaluationEnabled"`
	ExchangeRateSource          domain.RateSource      `json:"exchangeRateSource"`
}

// RecordExchangeRateRequest appends a rate to the history.
type RecordExchangeRateRequest struct {
	FromCurrency string            `json:"fromCurrency" binding:"required,iso4217"`
	ToCurrency   string            `json:"toCurrency" binding:"required,iso4217,nefield=FromCurrency"`
	Rate         decimal.Decimal   `json:"rate" binding:"required,dgt0"`
	Source       domain.RateSource `json:"source,omitempty" binding:"omitempty,oneof=MANUAL CENTRAL_BANK API SYSTEM"`
	EffectiveAt  *time.Time        `json:"effectiveAt,omitempty"`
	Notes        string            `json:"notes,omitempty" binding:"omitempty,max=255"`
}

// ListExchangeRatesParams are the query parameters of the rate history endpoint.
type ListExchangeRatesParams struct {
	FromCurrency string `form:"from" binding:"required,iso4217"`
	ToCurrency   string `form:"to" binding:"required,iso4217"`
	Limit        int    `form:"limit,default=50" binding:"omitempty,min=1,max=500"`
}

// ConvertRequest previews the conversion decision and converted amount.
type ConvertRequest struct {
	Amount        decimal.Decimal         `json:"amount" binding:"required"`
	FromCurrency  string                  `json:"fromCurrency" binding:"required,iso4217"`
	Date          *time.Time              `json:"date,omitempty"`
	Stage         domain.ConversionTiming `json:"stage,omitempty" binding:"omitempty,oneof=POSTING SETTLEMENT REPORTING"`
	UserRequested bool                    `json:"userRequested,omitempty"`
	Exempt        bool                    `json:"exempt,omitempty"`
}

// ConversionResult is the outcome of converting one amount.
type ConversionResult struct {
	Decision        domain.ConversionDecision `json:"decision"`
	Label           string                    `json:"label"`
	FromCurrency    string                    `json:"fromCurrency"`
	ToCurrency      string                    `json:"toCurrency"`
	OriginalAmount  decimal.Decimal           `json:"originalAmount"`
	ConvertedAmount decimal.Decimal           `json:"convertedAmount"`
	Rate            *decimal.Decimal          `json:"rate,omitempty"`
	RateSource      domain.RateSource         `json:"rateSource,omitempty"`
	RateDate        *time.Time                `json:"rateDate,omitempty"`
}

// RevaluationRequest revalues foreign currency balances at a new rate.
type RevaluationRequest struct {
	Currency        string          `json:"currency" binding:"required,iso4217"`
	Rate            decimal.Decimal `json:"rate" binding:"required,dgt0"`
	RevaluationDate time.Time       `json:"revaluationDate" binding:"required"`
}

// RevaluationAdjustment is the unrealized gain or loss booked on one account.
type RevaluationAdjustment struct {
	AccountCode    string          `json:"accountCode"`
	ForeignAmount  decimal.Decimal `json:"foreignAmount"`
	CarryingAmount decimal.Decimal `json:"carryingAmount"`
	RevaluedAmount decimal.Decimal `json:"revaluedAmount"`
	Difference     decimal.Decimal `json:"difference"`
}

// RevaluationResult reports a revaluation run.
type RevaluationResult struct {
	Currency        string                  `json:"currency"`
	Rate            decimal.Decimal         `json:"rate"`
	RevaluationDate time.Time               `json:"revaluationDate"`
	Adjustments     []RevaluationAdjustment `json:"adjustments"`
	Entry           *domain.JournalEntry    `json:"entry,omitempty"`
}
