package middleware

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries integration client keys.
const APIKeyHeader = "x-api-key"

// TokenValidator resolves an integration key to the actor it authenticates as.
type TokenValidator interface {
	ValidateToken(ctx context.Context, rawToken string) (*domain.Actor, error)
}

// APITokenAuth is a middleware that authenticates integration clients using API tokens.
// Requests without a key, or with a key that does not validate, fall through to AuthMiddleware.
func APITokenAuth(tokenSvc TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(APIKeyHeader)
		if rawKey == "" {
			c.Next()
			return
		}

		actor, err := tokenSvc.ValidateToken(c.Request.Context(), rawKey)
		if err != nil {
			GetLoggerFromCtx(c.Request.Context()).Warn("API token rejected", "error", err)
			c.Next()
			return
		}

		setActor(c, *actor, "api_token")
		c.Next()
	}
}
