package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAPITokenRepository struct {
	BaseRepository
}

// newPgxAPITokenRepository creates a new instance of PgxAPITokenRepository
func newPgxAPITokenRepository(db *pgxpool.Pool) *PgxAPITokenRepository {
	return &PgxAPITokenRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.APITokenRepositoryFacade = (*PgxAPITokenRepository)(nil)

const (
	apiTokensTable = "api_tokens"

	selectAPITokenFields = `
		api_token_id, name, prefix, token_hash, permissions,
		last_used_at, expires_at, revoked_at, created_by, created_at
	`

	insertAPITokenQuery = `
		INSERT INTO ` + apiTokensTable + ` (
			api_token_id, name, prefix, token_hash, permissions, expires_at, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	findAPITokensByPrefixQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		WHERE prefix = $1 AND revoked_at IS NULL
	`

	listAPITokensQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		ORDER BY created_at DESC
	`

	revokeAPITokenQuery = `
		UPDATE ` + apiTokensTable + `
		SET revoked_at = $2
		WHERE api_token_id = $1 AND revoked_at IS NULL
	`

	touchAPITokenQuery = `
		UPDATE ` + apiTokensTable + `
		SET last_used_at = $2
		WHERE api_token_id = $1
	`
)

// SaveToken persists a new API token. Only the bcrypt hash of the secret is stored.
func (r *PgxAPITokenRepository) SaveToken(ctx context.Context, token domain.APIToken) error {
	_, err := r.Pool.Exec(ctx, insertAPITokenQuery,
		token.ID,
		token.Name,
		token.Prefix,
		token.TokenHash,
		token.Permissions,
		token.ExpiresAt,
		token.CreatedBy,
		token.CreatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to save api token "+token.Name)
	}
	return nil
}

// FindTokensByPrefix returns the unrevoked tokens sharing a lookup prefix.
func (r *PgxAPITokenRepository) FindTokensByPrefix(ctx context.Context, prefix string) ([]domain.APIToken, error) {
	rows, err := r.Pool.Query(ctx, findAPITokensByPrefixQuery, prefix)
	if err != nil {
		return nil, mapPgError(err, "failed to query api tokens")
	}
	return collectAPITokens(rows)
}

// ListTokens lists every token, newest first.
func (r *PgxAPITokenRepository) ListTokens(ctx context.Context) ([]domain.APIToken, error) {
	rows, err := r.Pool.Query(ctx, listAPITokensQuery)
	if err != nil {
		return nil, mapPgError(err, "failed to list api tokens")
	}
	return collectAPITokens(rows)
}

// RevokeToken marks a token revoked.
func (r *PgxAPITokenRepository) RevokeToken(ctx context.Context, tokenID string, at time.Time) error {
	result, err := r.Pool.Exec(ctx, revokeAPITokenQuery, tokenID, at)
	if err != nil {
		return mapPgError(err, "failed to revoke api token "+tokenID)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("api token " + tokenID + " not found or already revoked")
	}
	return nil
}

// TouchLastUsed records when the token last authenticated a request.
func (r *PgxAPITokenRepository) TouchLastUsed(ctx context.Context, tokenID string, at time.Time) error {
	if _, err := r.Pool.Exec(ctx, touchAPITokenQuery, tokenID, at); err != nil {
		return mapPgError(err, "failed to update api token "+tokenID)
	}
	return nil
}

func collectAPITokens(rows pgx.Rows) ([]domain.APIToken, error) {
	defer rows.Close()
	tokens := []domain.APIToken{}
	for rows.Next() {
		token, err := scanAPIToken(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan api token row")
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating api token rows")
	}
	return tokens, nil
}

// scanAPIToken scans an API token from a row
func scanAPIToken(row pgx.Row) (domain.APIToken, error) {
	var token domain.APIToken
	err := row.Scan(
		&token.ID,
		&token.Name,
		&token.Prefix,
		&token.TokenHash,
		&token.Permissions,
		&token.LastUsedAt,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedBy,
		&token.CreatedAt,
	)
	return token, err
}
