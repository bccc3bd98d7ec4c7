package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type actorKey struct{}

// IdentityResolver resolves the acting member and their role flags from a
// bearer token. The community's user directory lives behind this interface.
type IdentityResolver interface {
	ResolveActor(ctx context.Context, token string) (round.Actor, error)
}

// ActorFromContext returns the resolved actor from context, if present.
func ActorFromContext(ctx context.Context) (round.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(round.Actor)
	return actor, ok
}

// AuthMiddleware enforces bearer token authentication. Websocket clients
// cannot set headers from the browser, so a token query parameter is accepted
// as a fallback.
func AuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), token)
			if err != nil || actor.UserID == 0 {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
