package middleware

import (
	"net/http"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/gin-gonic/gin"
)

// RequirePermission rejects requests whose actor lacks permission. It must run after
// the auth middlewares.
func RequirePermission(policy *authz.Policy, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			abortUnauthorized(c, "Unauthorized")
			return
		}
		if err := policy.Require(actor, permission); err != nil {
			GetLoggerFromCtx(c.Request.Context()).Warn("Permission denied",
				"permission", permission, "actor_id", actor.ID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": apperrors.PublicMessage(err),
				"code":    apperrors.Code(err),
			})
			return
		}
		c.Next()
	}
}
