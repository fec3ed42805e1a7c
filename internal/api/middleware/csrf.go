package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RobertFent/teambase/internal/identity"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfTokenTTL   = 24 * time.Hour
)

type csrfToken struct {
	value     string
	expiresAt time.Time
}

// CSRFStore keeps one token per session credential, in memory. Tokens are
// minted on safe requests and checked on mutating ones.
type CSRFStore struct {
	mu     sync.RWMutex
	tokens map[string]csrfToken
}

func NewCSRFStore() *CSRFStore {
	s := &CSRFStore{tokens: make(map[string]csrfToken)}
	go s.cleanup()
	return s
}

func (s *CSRFStore) cleanup() {
	for range time.Tick(time.Hour) {
		s.mu.Lock()
		now := time.Now()
		for key, tok := range s.tokens {
			if now.After(tok.expiresAt) {
				delete(s.tokens, key)
			}
		}
		s.mu.Unlock()
	}
}

// TokenFor returns the session's current token, minting one if needed.
func (s *CSRFStore) TokenFor(sessionKey string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, ok := s.tokens[sessionKey]; ok && time.Now().Before(tok.expiresAt) {
		return tok.value
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand failing means the process is in no state to serve
		panic(err)
	}
	tok := csrfToken{
		value:     base64.URLEncoding.EncodeToString(raw),
		expiresAt: time.Now().Add(csrfTokenTTL),
	}
	s.tokens[sessionKey] = tok
	return tok.value
}

// Valid reports whether provided matches the session's token.
func (s *CSRFStore) Valid(sessionKey, provided string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[sessionKey]
	if !ok || time.Now().After(tok.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok.value), []byte(provided)) == 1
}

// CSRF protects cookie-authenticated form posts with a double-submit token.
// Bearer-token requests skip the check: a cross-site page cannot attach an
// Authorization header, so they are not forgeable. Safe methods only ensure
// the token cookie is set for the session.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				issueCSRFCookie(w, r, store)
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			sessionKey := csrfSessionKey(r)
			if sessionKey == "" {
				http.Error(w, "Session required", http.StatusForbidden)
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				provided = r.FormValue(csrfFormField)
			}
			if provided == "" || !store.Valid(sessionKey, provided) {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func issueCSRFCookie(w http.ResponseWriter, r *http.Request, store *CSRFStore) {
	sessionKey := csrfSessionKey(r)
	if sessionKey == "" {
		return
	}
	if _, err := r.Cookie(csrfCookieName); err == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    store.TokenFor(sessionKey),
		Path:     "/",
		HttpOnly: false, // the frontend echoes it back in the header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenTTL.Seconds()),
	})
}

// csrfSessionKey derives a stable per-session map key from the session
// cookie. A prefix of the opaque token is enough to tell sessions apart.
func csrfSessionKey(r *http.Request) string {
	cookie, err := r.Cookie(identity.SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if len(cookie.Value) > 16 {
		return cookie.Value[:16]
	}
	return cookie.Value
}
