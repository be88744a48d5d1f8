/*
middleware.go - Authentication middleware and request identity

PURPOSE:

	Parses the bearer token, loads the acting employee and stores the
	identity in the request context. Handlers read the identity instead
	of trusting anything in the request body.

SEE ALSO:
  - auth: token parsing
  - server.go: middleware ordering
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated actor for a request.
type Identity struct {
	EmployeeID string
	Role       leave.Role
}

// IdentityFrom extracts the authenticated identity from a context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Authenticated rejects requests without a valid bearer token.
func (h *Handler) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		claims, err := auth.ParseToken(h.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", nil)
			return
		}
		identity := Identity{EmployeeID: claims.EmployeeID, Role: leave.Role(claims.Role)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// RequireRole gates a handler to the given roles.
func RequireRole(roles ...leave.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient role", nil)
		})
	}
}
