package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Envelope wraps every API response.
// @Description Standard response envelope. Successful calls carry data, failed calls carry message, code and, for blocked document modifications, reason.
type Envelope struct {
	Success bool   `json:"success" example:"true"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty" example:"fiscal period is closed"`
	Code    string `json:"code,omitempty" example:"PERIOD_CLOSED"`
	Reason  string `json:"reason,omitempty" example:"PAYMENTS_APPLIED"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// respondError maps err to its status code and writes the failure envelope.
// Internal failures are logged with their cause but answered with a generic message.
func respondError(c *gin.Context, err error, msg string) {
	status := apperrors.HTTPStatus(err)
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
	} else {
		logger.Warn(msg, slog.String("error", err.Error()), slog.Int("status", status))
	}

	env := Envelope{
		Success: false,
		Message: apperrors.PublicMessage(err),
		Code:    apperrors.Code(err),
	}
	var modErr *apperrors.ModificationForbiddenError
	if errors.As(err, &modErr) {
		env.Reason = string(modErr.Reason)
	}
	c.JSON(status, env)
}

func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: "Invalid request: " + err.Error(),
		Code:    apperrors.Code(apperrors.ErrValidation),
	})
}

// mustActor returns the authenticated actor or answers 401.
func mustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, Envelope{Success: false, Message: "Unauthorized"})
		return domain.Actor{}, false
	}
	return actor, true
}
