package middleware

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// actorCtxKey is the key used to store the authenticated actor.
const actorCtxKey = contextKey("actor")

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromCtx returns the actor stored by the auth middlewares.
func ActorFromCtx(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey).(domain.Actor)
	return actor, ok
}

// GetActorFromContext retrieves the authenticated actor for a Gin request.
func GetActorFromContext(c *gin.Context) (domain.Actor, bool) {
	return ActorFromCtx(c.Request.Context())
}

// setActor stores the actor and an enriched logger on the request.
func setActor(c *gin.Context, actor domain.Actor, authMethod string) {
	logger := GetLoggerFromCtx(c.Request.Context()).With(
		"actor_id", actor.ID,
		"auth_method", authMethod,
	)
	ctx := WithActor(c.Request.Context(), actor)
	ctx = WithLogger(ctx, logger)
	c.Request = c.Request.WithContext(ctx)
	c.Set("authMethod", authMethod)
}
