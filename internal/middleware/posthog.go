package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/erp_ledger/internal/adapters/analytics"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// PosthogMiddleware tracks successful authenticated API calls with PostHog.
func PosthogMiddleware(client *analytics.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		actor, ok := GetActorFromContext(c)
		if !ok {
			return
		}

		// "/api/v1/journal-entries/:id/reverse" -> "api_v1_journal-entries_:id_reverse"
		eventName := strings.ReplaceAll(strings.TrimPrefix(c.FullPath(), "/"), "/", "_")
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"actor_kind":  string(actor.Kind),
		}
		if len(c.Params) > 0 {
			params := make(map[string]string, len(c.Params))
			for _, param := range c.Params {
				params[param.Key] = param.Value
			}
			props["params"] = params
		}

		if err := client.Track(actor.ID, eventName, props); err != nil {
			GetLoggerFromCtx(c.Request.Context()).Warn("Posthog enqueue failed", "error", err.Error())
		}
	}
}
