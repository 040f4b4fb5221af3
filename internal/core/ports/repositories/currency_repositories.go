package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// CurrencyPolicyReader defines read operations for currency policies.
type CurrencyPolicyReader interface {
	// FindActivePolicy returns the single active policy, or ErrNotFound.
	FindActivePolicy(ctx context.Context) (*domain.CurrencyPolicy, error)

	// FindPolicyByID retrieves a policy by id.
	FindPolicyByID(ctx context.Context, policyID string) (*domain.CurrencyPolicy, error)

	// ListPolicies lists every policy, active first.
	ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error)
}

// CurrencyPolicyWriter defines write operations for currency policies.
type CurrencyPolicyWriter interface {
	// SavePolicy persists a new, inactive policy.
	SavePolicy(ctx context.Context, policy domain.CurrencyPolicy) error

	// ActivatePolicy deactivates every other policy and activates policyID in one transaction.
	ActivatePolicy(ctx context.Context, policyID string, actorID string, at time.Time) (*domain.CurrencyPolicy, error)
}

// CurrencyPolicyRepositoryFacade combines the policy interfaces.
type CurrencyPolicyRepositoryFacade interface {
	CurrencyPolicyReader
	CurrencyPolicyWriter
}

// ExchangeRateReader reads the append-only rate history.
type ExchangeRateReader interface {
	// FindRateOnOrBefore returns the latest from->to rate effective at or before at, or ErrNotFound.
	FindRateOnOrBefore(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error)

	// ListRates lists the history of a pair, newest first.
	ListRates(ctx context.Context, from, to string, limit int) ([]domain.ExchangeRate, error)
}

// ExchangeRateWriter appends to the rate history. Records are never updated.
type ExchangeRateWriter interface {
	// AppendRate inserts a rate. A record with the same pair and effective timestamp is kept as is.
	AppendRate(ctx context.Context, rate domain.ExchangeRate) error
}

// ExchangeRateRepositoryFacade combines the rate interfaces.
type ExchangeRateRepositoryFacade interface {
	ExchangeRateReader
	ExchangeRateWriter
}
