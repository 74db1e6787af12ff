package handler

import (
	"context"
	"net/http"
)

// Role is the caller category asserted by the auth gateway in front of this
// service. The service trusts the headers; authentication itself happens
// upstream.
type Role string

const (
	RoleClient   Role = "client"
	RoleMerchant Role = "merchant"
	RoleHotel    Role = "hotel"
	RoleAdmin    Role = "admin"
)

// Actor identifies the caller of the current request.
type Actor struct {
	Role Role
	ID   string
}

type actorKey struct{}

// Identity extracts the X-Actor-Role and X-Actor-Id headers into an Actor
// on the request context. Requests without the headers proceed anonymously.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Actor-Role")
		if role == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, Actor{
			Role: Role(role),
			ID:   r.Header.Get("X-Actor-Id"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFrom returns the Actor stored on the context, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// RequireRole rejects requests whose actor role is not in the allow list.
func RequireRole(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, http.StatusForbidden, "forbidden", "role required")
				return
			}
			for _, role := range allowed {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "role "+string(actor.Role)+" may not perform this action")
		})
	}
}
