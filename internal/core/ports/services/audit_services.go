package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// AuditEvent describes an action to record.
type AuditEvent struct {
	Action      string
	Module      string
	Description string
	Metadata    map[string]any
}

// AuditRecorderSvc records audit entries without ever failing the caller.
type AuditRecorderSvc interface {
	// Record enqueues an entry. It never blocks and never returns an error;
	// sink failures are logged and spooled.
	Record(ctx context.Context, actor *domain.Actor, event AuditEvent)
}

// AuditReaderSvc lists recorded entries.
type AuditReaderSvc interface {
	ListAuditEntries(ctx context.Context, actor domain.Actor, params dto.ListAuditLogsParams) (*dto.ListAuditLogsResponse, error)
}

// AuditSvcFacade combines the audit interfaces.
type AuditSvcFacade interface {
	AuditRecorderSvc
	AuditReaderSvc
}
