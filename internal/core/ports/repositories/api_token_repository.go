package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// APITokenReader defines read operations for integration tokens.
type APITokenReader interface {
	// FindTokensByPrefix returns the unrevoked tokens sharing a lookup prefix.
	FindTokensByPrefix(ctx context.Context, prefix string) ([]domain.APIToken, error)

	// ListTokens lists every token, newest first.
	ListTokens(ctx context.Context) ([]domain.APIToken, error)
}

// APITokenWriter defines write operations for integration tokens.
type APITokenWriter interface {
	// SaveToken persists a new token.
	SaveToken(ctx context.Context, token domain.APIToken) error

	// RevokeToken marks a token revoked.
	RevokeToken(ctx context.Context, tokenID string, at time.Time) error

	// TouchLastUsed records when the token last authenticated a request.
	TouchLastUsed(ctx context.Context, tokenID string, at time.Time) error
}

// APITokenRepositoryFacade combines the token interfaces.
type APITokenRepositoryFacade interface {
	APITokenReader
	APITokenWriter
}
