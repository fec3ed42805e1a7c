package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/RobertFent/teambase/internal/database/models"
	"github.com/RobertFent/teambase/internal/store"
)

var (
	// ErrUnauthenticated means the request carried no usable credential;
	// interactive callers get redirected to sign-in, not an error page.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrDesync means the credential is valid but no active local user
	// matches: the provider knows this principal, we do not. Usually a
	// missed or not-yet-delivered webhook, and must stay distinguishable
	// from "never signed up".
	ErrDesync = errors.New("identity known to provider but not found locally")
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session"

// Resolver maps request credentials to a live local user. It never calls
// the provider: token verification happens in-process and the only lookup
// is against the local store.
type Resolver struct {
	store  *store.Store
	tokens *TokenService
}

func NewResolver(st *store.Store, tokens *TokenService) *Resolver {
	return &Resolver{store: st, tokens: tokens}
}

// Resolve extracts the caller's credential from r and returns the matching
// active user. ErrUnauthenticated for absent/invalid credentials, ErrDesync
// for a valid credential without a local user.
func (rs *Resolver) Resolve(ctx context.Context, r *http.Request) (*models.User, error) {
	token := credentialFromRequest(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := rs.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := rs.store.UserByExternalID(ctx, claims.ExternalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDesync
		}
		return nil, err
	}
	return user, nil
}

func credentialFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
