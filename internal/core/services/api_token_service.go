package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

const (
	moduleAPITokens = "api_tokens"
	// TokenPrefix marks ledger integration keys.
	TokenPrefix = "erp_"
	// lookupPrefixLen is how many characters of the key are stored in clear to find its row.
	lookupPrefixLen = 12
)

var errInvalidToken = errors.New("invalid token")

// apiTokenService implements the APITokenSvcFacade interface
type apiTokenService struct {
	BaseService
	tokenRepo portsrepo.APITokenRepositoryFacade
}

// NewAPITokenService creates a new instance of apiTokenService
func NewAPITokenService(tokenRepo portsrepo.APITokenRepositoryFacade, policy *authz.Policy, recorder portssvc.AuditRecorderSvc) portssvc.APITokenSvcFacade {
	return &apiTokenService{
		BaseService: BaseService{Policy: policy, Audit: recorder},
		tokenRepo:   tokenRepo,
	}
}

// CreateToken generates a new integration key. The plaintext is returned once.
func (s *apiTokenService) CreateToken(ctx context.Context, actor domain.Actor, req dto.CreateAPITokenRequest) (*dto.CreateAPITokenResponse, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageAPITokens); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewValidationError("token name is required")
	}
	if len(req.Permissions) == 0 {
		return nil, apperrors.NewValidationError("a token needs at least one permission")
	}

	secret, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token: %w", err)
	}

	now := s.Now()
	token := domain.APIToken{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Prefix:      secret[:lookupPrefixLen],
		TokenHash:   string(tokenHash),
		Permissions: req.Permissions,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
	}
	if req.ExpiresInDays != nil {
		expiry := now.AddDate(0, 0, *req.ExpiresInDays)
		token.ExpiresAt = &expiry
	}

	if err := s.tokenRepo.SaveToken(ctx, token); err != nil {
		s.LogError(ctx, err, "Failed to save API token", slog.String("name", req.Name))
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "api_token.created",
		Module:      moduleAPITokens,
		Description: "Issued integration key " + token.Name,
		Metadata: map[string]any{
			"token_id":    token.ID,
			"permissions": token.Permissions,
		},
	})
	return &dto.CreateAPITokenResponse{Token: token, Secret: secret}, nil
}

func (s *apiTokenService) ListTokens(ctx context.Context, actor domain.Actor) ([]domain.APIToken, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManageAPITokens); err != nil {
		return nil, err
	}
	tokens, err := s.tokenRepo.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []domain.APIToken{}
	}
	return tokens, nil
}

func (s *apiTokenService) RevokeToken(ctx context.Context, actor domain.Actor, tokenID string) error {
	if err := s.RequirePermission(ctx, actor, authz.PermManageAPITokens); err != nil {
		return err
	}
	if err := s.tokenRepo.RevokeToken(ctx, tokenID, s.Now()); err != nil {
		return err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "api_token.revoked",
		Module:      moduleAPITokens,
		Description: "Revoked integration key " + tokenID,
		Metadata:    map[string]any{"token_id": tokenID},
	})
	return nil
}

// ValidateToken checks a raw key against the stored hashes sharing its prefix.
func (s *apiTokenService) ValidateToken(ctx context.Context, rawToken string) (*domain.Actor, error) {
	if !strings.HasPrefix(rawToken, TokenPrefix) || len(rawToken) <= lookupPrefixLen {
		return nil, errInvalidToken
	}
	candidates, err := s.tokenRepo.FindTokensByPrefix(ctx, rawToken[:lookupPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	now := s.Now()
	for i := range candidates {
		token := &candidates[i]
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(rawToken)) != nil {
			continue
		}
		if !token.IsUsable(now) {
			return nil, errors.New("token has expired or was revoked")
		}
		if err := s.tokenRepo.TouchLastUsed(ctx, token.ID, now); err != nil {
			// not fatal, the request is still authenticated
			s.LogWarn(ctx, "Failed to update token last use", slog.String("token_id", token.ID), slog.String("error", err.Error()))
		}
		actor := token.Actor()
		return &actor, nil
	}
	return nil, errInvalidToken
}

// generateSecureToken generates a secure random token
func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// Use URL-safe base64 encoding without padding
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
