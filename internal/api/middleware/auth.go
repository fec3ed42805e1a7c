package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/identity"
)

type contextKey string

const userKey contextKey = "current_user"

// Auth resolves the caller once per request and stores the active local
// user in the context. The two failure modes stay distinct: unauthenticated
// callers are sent to sign-in (or 401 for API clients), while a desync (a
// valid provider credential without a local user) gets its own 403 body so
// a missed webhook is diagnosable from the response alone.
func Auth(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrUnauthenticated):
					handleUnauthenticated(w, r)
				case errors.Is(err, identity.ErrDesync):
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					_, _ = w.Write([]byte(`{"error":"Account not provisioned yet. Please retry shortly."}`))
				default:
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// handleUnauthenticated redirects browser requests to sign-in and returns
// 401 for API clients.
func handleUnauthenticated(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	isWebRequest := strings.Contains(accept, "text/html") && !strings.HasPrefix(r.URL.Path, "/api/")

	if isWebRequest {
		http.Redirect(w, r, "/sign-in", http.StatusFound)
		return
	}

	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// CurrentUser returns the resolved caller, or nil outside authenticated
// routes.
func CurrentUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(userKey).(*models.User); ok {
		return user
	}
	return nil
}
