package api

import (
	"context"
	"net/http"

	"github.com/example/property-ledger/internal/directory"
	"github.com/example/property-ledger/internal/security"
)

// Actor headers set by the gateway in front of this service. The gateway
// authenticates the user; this service only reads the result.
const (
	ActorIDHeader    = "X-Actor-ID"
	ActorEmailHeader = "X-Actor-Email"
	ActorRoleHeader  = "X-Actor-Role"
)

type actorKey struct{}

// RequireActor rejects requests that carry no actor identity. Role
// defaults to tenant so an unknown role never gains approval rights.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ActorIDHeader)
		if id == "" {
			security.WriteJSONError(w, r, http.StatusUnauthorized, "actor_required")
			return
		}
		role := r.Header.Get(ActorRoleHeader)
		if role == "" {
			role = directory.RoleTenant
		}
		actor := directory.Actor{
			ID:    id,
			Email: r.Header.Get(ActorEmailHeader),
			Role:  role,
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the request's actor. The zero Actor means
// RequireActor was not in the chain.
func ActorFromContext(ctx context.Context) directory.Actor {
	if v, ok := ctx.Value(actorKey{}).(directory.Actor); ok {
		return v
	}
	return directory.Actor{}
}
