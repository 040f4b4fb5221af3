package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
)

// RedactedValue replaces sensitive metadata values.
const RedactedValue = "[REDACTED]"

const (
	defaultAuditBufferSize = 256
	auditWriteTimeout      = 5 * time.Second
)

var sensitiveAuditKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"session_token": {},
	"credit_card":   {},
	"cvv":           {},
}

// RedactMetadata returns a deep copy of metadata with sensitive keys masked at any depth.
// Keys match case-insensitively.
func RedactMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if _, sensitive := sensitiveAuditKeys[strings.ToLower(k)]; sensitive {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return RedactMetadata(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = redactValue(item)
		}
		return items
	case []map[string]any:
		items := make([]map[string]any, len(val))
		for i, item := range val {
			items[i] = RedactMetadata(item)
		}
		return items
	}
	return v
}

// auditRecorder appends audit entries asynchronously. Record never blocks: entries go
// through a bounded queue drained by one worker, and anything the store rejects or the
// queue cannot hold lands in the spool for a later replay.
type auditRecorder struct {
	BaseService
	repo    portsrepo.AuditRepositoryFacade
	spool   portsrepo.AuditSpool
	mirrors []portsrepo.AuditMirror

	bufferSize int
	queue      chan domain.AuditLogEntry
	mu         sync.RWMutex
	closed     bool
	wg         sync.WaitGroup
}

// AuditRecorderOption is a functional option for the audit recorder.
type AuditRecorderOption func(*auditRecorder)

// WithAuditSpool sets the fallback spool.
func WithAuditSpool(spool portsrepo.AuditSpool) AuditRecorderOption {
	return func(r *auditRecorder) {
		r.spool = spool
	}
}

// WithAuditMirror adds a mirror that receives every persisted entry.
func WithAuditMirror(mirror portsrepo.AuditMirror) AuditRecorderOption {
	return func(r *auditRecorder) {
		if mirror != nil {
			r.mirrors = append(r.mirrors, mirror)
		}
	}
}

// WithAuditBufferSize sets the queue capacity.
func WithAuditBufferSize(size int) AuditRecorderOption {
	return func(r *auditRecorder) {
		if size > 0 {
			r.bufferSize = size
		}
	}
}

// WithAuditPolicy sets the policy guarding audit queries.
func WithAuditPolicy(policy *authz.Policy) AuditRecorderOption {
	return func(r *auditRecorder) {
		r.Policy = policy
	}
}

// AuditRecorder is the audit service together with its lifecycle.
type AuditRecorder interface {
	portssvc.AuditSvcFacade
	// ReplaySpool writes spooled entries to the store.
	ReplaySpool(ctx context.Context) (int, error)
	// Close stops accepting entries and waits until the queue is drained.
	Close()
}

// NewAuditRecorder creates the recorder and starts its worker.
func NewAuditRecorder(repo portsrepo.AuditRepositoryFacade, options ...AuditRecorderOption) AuditRecorder {
	r := &auditRecorder{
		repo:       repo,
		bufferSize: defaultAuditBufferSize,
	}
	for _, option := range options {
		option(r)
	}
	r.queue = make(chan domain.AuditLogEntry, r.bufferSize)
	r.wg.Add(1)
	go r.run()
	return r
}

var _ portssvc.AuditSvcFacade = (*auditRecorder)(nil)

// Record builds the entry from the request context and enqueues it.
func (r *auditRecorder) Record(ctx context.Context, actor *domain.Actor, event portssvc.AuditEvent) {
	entry := domain.AuditLogEntry{
		LogID:       uuid.NewString(),
		ActorName:   actor.DisplayName(),
		Action:      event.Action,
		Module:      event.Module,
		Description: event.Description,
		Metadata:    RedactMetadata(event.Metadata),
		IPAddress:   middleware.ClientIPFromCtx(ctx),
		CreatedAt:   r.Now(),
	}
	if actor != nil && actor.ID != "" {
		id := actor.ID
		entry.UserID = &id
	}
	if requestID := middleware.RequestIDFromCtx(ctx); requestID != "" {
		if entry.Metadata == nil {
			entry.Metadata = map[string]any{}
		}
		entry.Metadata["request_id"] = requestID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.fallback(ctx, entry, "recorder closed")
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.fallback(ctx, entry, "audit queue full")
	}
}

func (r *auditRecorder) run() {
	defer r.wg.Done()
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *auditRecorder) write(entry domain.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := r.repo.InsertAuditEntry(ctx, entry); err != nil {
		r.fallback(ctx, entry, err.Error())
		return
	}
	for _, m := range r.mirrors {
		if err := m.Mirror(entry); err != nil {
			r.LogWarn(ctx, "Audit mirror rejected entry",
				slog.String("action", entry.Action),
				slog.String("error", err.Error()))
		}
	}
}

// fallback spools an entry the store could not take. It only logs; the business
// operation that produced the entry has already succeeded.
func (r *auditRecorder) fallback(ctx context.Context, entry domain.AuditLogEntry, cause string) {
	logger := r.GetLogger(ctx)
	if r.spool == nil {
		logger.Error("Audit entry dropped",
			slog.String("cause", cause),
			slog.String("action", entry.Action),
			slog.String("module", entry.Module))
		return
	}
	if err := r.spool.Put(entry); err != nil {
		logger.Error("Audit entry dropped, spool unavailable",
			slog.String("cause", cause),
			slog.String("spool_error", err.Error()),
			slog.String("action", entry.Action),
			slog.String("module", entry.Module))
		return
	}
	logger.Warn("Audit entry spooled",
		slog.String("cause", cause),
		slog.String("action", entry.Action),
		slog.String("module", entry.Module))
}

func (r *auditRecorder) ReplaySpool(ctx context.Context) (int, error) {
	if r.spool == nil {
		return 0, nil
	}
	n, err := r.spool.Replay(ctx, func(entry domain.AuditLogEntry) error {
		return r.repo.InsertAuditEntry(ctx, entry)
	})
	if n > 0 {
		r.LogInfo(ctx, "Replayed spooled audit entries", slog.Int("count", n))
	}
	return n, err
}

func (r *auditRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *auditRecorder) ListAuditEntries(ctx context.Context, actor domain.Actor, params dto.ListAuditLogsParams) (*dto.ListAuditLogsResponse, error) {
	if err := r.RequirePermission(ctx, actor, authz.PermViewAudit); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, next, err := r.repo.ListAuditEntries(ctx, params.Module, portsrepo.PageParams{Limit: limit, NextToken: params.NextToken})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}
	return &dto.ListAuditLogsResponse{Entries: entries, NextToken: next}, nil
}
