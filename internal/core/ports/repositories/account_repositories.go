package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// AccountReader defines read operations for the chart of accounts.
type AccountReader interface {
	// FindAccountByCode retrieves an account by its code, with HasChildren populated.
	FindAccountByCode(ctx context.Context, code string) (*domain.Account, error)

	// FindAccountsByCodes retrieves several accounts keyed by code. Missing codes are absent from the map.
	FindAccountsByCodes(ctx context.Context, codes []string) (map[string]domain.Account, error)

	// ListAccounts retrieves the chart of accounts ordered by code.
	ListAccounts(ctx context.Context, includeInactive bool) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data.
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// DeactivateAccount marks an account as inactive. Accounts are never hard deleted.
	DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error
}

// AccountBalanceReader aggregates posted lines per account.
type AccountBalanceReader interface {
	// AccountActivity sums the lines posted to one account up to and including asOf.
	AccountActivity(ctx context.Context, code string, asOf time.Time) (*domain.AccountActivity, error)

	// ListAccountActivity sums the lines of every account up to and including asOf.
	ListAccountActivity(ctx context.Context, asOf time.Time) ([]domain.AccountActivity, error)

	// ListForeignCurrencyBalances returns per-account positions held in currency up to asOf.
	ListForeignCurrencyBalances(ctx context.Context, currency string, asOf time.Time) ([]domain.ForeignCurrencyBalance, error)
}

// AccountRepositoryFacade combines all account-related repository interfaces.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	AccountBalanceReader
}
