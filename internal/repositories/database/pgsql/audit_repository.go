package pgsql

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/erp_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuditRepository struct {
	BaseRepository
}

func newPgxAuditRepository(pool *pgxpool.Pool) *PgxAuditRepository {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

// InsertAuditEntry appends an entry. A replayed entry that already landed is ignored.
func (r *PgxAuditRepository) InsertAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (log_id, user_id, actor_name, action, module, description, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (log_id) DO NOTHING;
	`
	_, err := r.Pool.Exec(ctx, query,
		entry.LogID,
		entry.UserID,
		entry.ActorName,
		entry.Action,
		entry.Module,
		entry.Description,
		entry.Metadata,
		nullString(entry.IPAddress),
		entry.CreatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to insert audit entry "+entry.Action)
	}
	return nil
}

// ListAuditEntries returns a page of entries newest first, optionally for one module.
func (r *PgxAuditRepository) ListAuditEntries(ctx context.Context, module string, params portsrepo.PageParams) ([]domain.AuditLogEntry, *string, error) {
	limit := pagination.Limit(params.Limit, 50, 500)
	fetchLimit := limit + 1

	query := `
		SELECT log_id, user_id, actor_name, action, module, description, metadata, ip_address, created_at
		FROM audit_logs
		WHERE TRUE`
	args := []any{}
	if module != "" {
		args = append(args, module)
		query += ` AND module = $` + strconv.Itoa(len(args))
	}
	if params.NextToken != nil && *params.NextToken != "" {
		cursor, err := pagination.DecodeCursor(*params.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", apperrors.ErrValidation)
		}
		args = append(args, cursor.At, cursor.ID)
		query += ` AND (created_at, log_id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}
	args = append(args, fetchLimit)
	query += ` ORDER BY created_at DESC, log_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to list audit entries")
	}
	defer rows.Close()

	entries := make([]domain.AuditLogEntry, 0, fetchLimit)
	for rows.Next() {
		var e domain.AuditLogEntry
		var description, ip sql.NullString
		if err := rows.Scan(&e.LogID, &e.UserID, &e.ActorName, &e.Action, &e.Module, &description, &e.Metadata, &ip, &e.CreatedAt); err != nil {
			return nil, nil, mapPgError(err, "failed to scan audit entry row")
		}
		e.Description = description.String
		e.IPAddress = ip.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapPgError(err, "error iterating audit entry rows")
	}

	var nextToken *string
	if len(entries) > limit {
		last := entries[limit-1]
		token := pagination.EncodeCursor(pagination.Cursor{At: last.CreatedAt, CreatedAt: last.CreatedAt, ID: last.LogID})
		nextToken = &token
		entries = entries[:limit]
	}
	return entries, nextToken, nil
}
