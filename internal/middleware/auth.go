package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// LedgerClaims are the JWT claims issued to ledger users by the identity provider.
// Permissions are forwarded verbatim to the authorization policy.
type LedgerClaims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
}

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())
		// if auth is already done (api token), skip this middleware
		if authMethod, exists := c.Get("authMethod"); exists {
			logger.Debug("Auth already done", "authMethod", authMethod)
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			abortUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &LedgerClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			logger.Warn("Invalid token", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			abortUnauthorized(c, msg)
			return
		}

		if !token.Valid || claims.Subject == "" {
			logger.Error("User ID (subject) missing from valid token")
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		setActor(c, domain.Actor{
			ID:          claims.Subject,
			Name:        claims.Name,
			Kind:        domain.ActorUser,
			Permissions: claims.Permissions,
		}, "jwt")
		c.Next()
	}
}
