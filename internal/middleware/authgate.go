package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"printdesk/internal/authz"
	"printdesk/internal/models"
)

// IdentityHeader carries the caller's verified email. It is populated by
// the authenticating reverse proxy after validating the identity provider's
// token; the application never sees credentials.
const IdentityHeader = "X-User-Email"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// userKey is the context key for the resolved account.
	userKey contextKey = "user"
)

// RequireRole authorizes every request through the access gate before the
// handler runs. The gate re-reads role and block status from the store on
// each request, so a block takes effect immediately without token refresh.
// All denials are fail-closed; blocked accounts get the distinguished
// "account blocked" message.
func RequireRole(gate *authz.Gate, required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := r.Header.Get(IdentityHeader)
			if email == "" {
				writeJSONError(w, "Authentication required.", http.StatusUnauthorized)
				return
			}

			decision, user := gate.Authorize(email, required)
			switch decision {
			case authz.Allowed:
				ctx := context.WithValue(r.Context(), userKey, user)
				next.ServeHTTP(w, r.WithContext(ctx))
			case authz.DeniedBlocked:
				writeJSONError(w, "Account blocked.", http.StatusForbidden)
			default:
				// Role denials and lookup failures both end here — internal
				// detail is never exposed to the caller.
				writeJSONError(w, "Forbidden", http.StatusForbidden)
			}
		})
	}
}

// CurrentUser extracts the authorized account from the request context.
// Returns nil outside a RequireRole-protected route.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// writeJSONError writes a JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
