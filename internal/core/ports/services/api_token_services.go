package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// APITokenSvcFacade manages integration client keys.
type APITokenSvcFacade interface {
	CreateToken(ctx context.Context, actor domain.Actor, req dto.CreateAPITokenRequest) (*dto.CreateAPITokenResponse, error)
	ListTokens(ctx context.Context, actor domain.Actor) ([]domain.APIToken, error)
	RevokeToken(ctx context.Context, actor domain.Actor, tokenID string) error

	// ValidateToken resolves a raw key to the actor it authenticates as.
	ValidateToken(ctx context.Context, rawToken string) (*domain.Actor, error)
}
