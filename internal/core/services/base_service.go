package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Policy *authz.Policy
	Audit  portssvc.AuditRecorderSvc
	Clock  func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// Now returns the current time in UTC, from Clock when set.
func (s *BaseService) Now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// RequirePermission checks an administrative permission.
func (s *BaseService) RequirePermission(ctx context.Context, actor domain.Actor, permission string) error {
	policy := s.Policy
	if policy == nil {
		policy = authz.NewPolicy(nil)
	}
	if err := policy.Require(actor, permission); err != nil {
		s.LogWarn(ctx, "Permission denied",
			slog.String("actor_id", actor.ID),
			slog.String("permission", permission))
		return err
	}
	return nil
}

// RecordAudit hands an event to the audit recorder, if one is configured.
func (s *BaseService) RecordAudit(ctx context.Context, actor *domain.Actor, event portssvc.AuditEvent) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, actor, event)
}
