package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// CurrencyPolicyEngineSvc decides and performs currency conversion.
type CurrencyPolicyEngineSvc interface {
	// ReferenceCurrency returns the ledger (reference) currency of the active policy.
	ReferenceCurrency(ctx context.Context) (string, error)

	// DecideConversion applies the active policy to a request. A mandated conversion with
	// no available rate fails with ErrMissingExchangeRate when require_exchange_rate is set.
	DecideConversion(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionContext, error)

	// Convert converts amount between two currencies at the rate effective on date,
	// rounded to the configured amount precision.
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (*dto.ConversionResult, error)

	// Preview runs DecideConversion and applies it to an amount.
	Preview(ctx context.Context, req dto.ConvertRequest) (*dto.ConversionResult, error)
}

// CurrencyPolicyAdminSvc manages currency policies.
type CurrencyPolicyAdminSvc interface {
	CreatePolicy(ctx context.Context, actor domain.Actor, req dto.CreateCurrencyPolicyRequest) (*domain.CurrencyPolicy, error)
	ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error)
	ActivatePolicy(ctx context.Context, actor domain.Actor, policyID string) (*domain.CurrencyPolicy, error)
	PolicyStatus(ctx context.Context) (*dto.CurrencyPolicyStatus, error)
}

// CurrencySvcFacade combines the currency policy interfaces.
type CurrencySvcFacade interface {
	CurrencyPolicyEngineSvc
	CurrencyPolicyAdminSvc
}

// ExchangeRateSvcFacade manages the rate history.
type ExchangeRateSvcFacade interface {
	RecordRate(ctx context.Context, actor domain.Actor, req dto.RecordExchangeRateRequest) (*domain.ExchangeRate, error)
	// FindRate returns the from->to rate effective at date, falling back to the inverse pair.
	FindRate(ctx context.Context, from, to string, date time.Time) (*domain.ExchangeRate, error)
	ListRates(ctx context.Context, params dto.ListExchangeRatesParams) ([]domain.ExchangeRate, error)
}

// RevaluationSvc revalues foreign currency balances under a VALUED_ASSET policy.
type RevaluationSvc interface {
	Revalue(ctx context.Context, actor domain.Actor, req dto.RevaluationRequest) (*dto.RevaluationResult, error)
}
