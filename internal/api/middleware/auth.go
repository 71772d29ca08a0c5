package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/crickettalent/internal/api/apierr"
	"github.com/mcoot/crickettalent/internal/model"
)

type contextKey string

const actorContextKey contextKey = "actor"

// TokenValidator resolves a bearer token to the actor it was issued to
type TokenValidator interface {
	ValidateToken(token string) (model.Actor, error)
}

// Auth creates authentication middleware that puts the caller's
// model.Actor into the request context
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			actor, err := validator.ValidateToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// WithActor returns a context carrying the actor
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// GetActor returns the authenticated actor from the request context
func GetActor(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(model.Actor)
	return actor, ok
}

// MustGetActor returns the authenticated actor or panics
func MustGetActor(ctx context.Context) model.Actor {
	actor, ok := GetActor(ctx)
	if !ok {
		panic("no actor in context - auth middleware not applied?")
	}
	return actor
}
