package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// AccountRegistrySvc resolves posting targets.
type AccountRegistrySvc interface {
	// ResolveLeafAccount returns the account for code if it exists, is active and is postable.
	// It fails with ErrAccountNotFound or ErrInvalidPostingTarget.
	ResolveLeafAccount(ctx context.Context, code string) (*domain.Account, error)

	// ResolvePostingAccounts resolves several codes at once with the same rules, keyed by code.
	ResolvePostingAccounts(ctx context.Context, codes []string) (map[string]domain.Account, error)

	// IsPostable reports whether entries may target the account under the current settings.
	IsPostable(account domain.Account) bool
}

// AccountReaderSvc defines read operations for accounts and balances.
type AccountReaderSvc interface {
	GetAccount(ctx context.Context, code string) (*domain.Account, error)
	ListAccounts(ctx context.Context, includeInactive bool) ([]domain.Account, error)
	GetAccountBalance(ctx context.Context, code string, asOf time.Time) (*dto.AccountBalanceResponse, error)
	GetTrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error)
}

// AccountWriterSvc defines chart of accounts maintenance.
type AccountWriterSvc interface {
	CreateAccount(ctx context.Context, actor domain.Actor, req dto.CreateAccountRequest) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, actor domain.Actor, code string) error
}

// AccountSvcFacade combines all account-related service interfaces.
type AccountSvcFacade interface {
	AccountRegistrySvc
	AccountReaderSvc
	AccountWriterSvc
}
