package repositories

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// TxHook runs inside a repository-owned database transaction, after the repository's
// own writes and before commit. entry is the row just written. An error rolls the
// whole transaction back.
type TxHook func(ctx context.Context, tx pgx.Tx, entry *domain.JournalEntry) error

// PageParams is a cursor page request.
type PageParams struct {
	Limit     int
	NextToken *string
}
