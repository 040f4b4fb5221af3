package repositories

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// AuditWriter appends audit entries.
type AuditWriter interface {
	InsertAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error
}

// AuditReader lists audit entries newest first.
type AuditReader interface {
	ListAuditEntries(ctx context.Context, module string, params PageParams) ([]domain.AuditLogEntry, *string, error)
}

// AuditRepositoryFacade combines the audit interfaces.
type AuditRepositoryFacade interface {
	AuditWriter
	AuditReader
}

// AuditSpool is a local fallback store for entries the primary sink could not accept.
type AuditSpool interface {
	// Put stores an entry for later replay.
	Put(entry domain.AuditLogEntry) error

	// Replay hands every spooled entry to fn, oldest first, and removes the ones fn accepted.
	// It stops at the first error and returns how many entries were replayed.
	Replay(ctx context.Context, fn func(domain.AuditLogEntry) error) (int, error)
}

// AuditMirror receives a copy of every persisted audit entry (analytics, SIEM).
type AuditMirror interface {
	Mirror(entry domain.AuditLogEntry) error
}
