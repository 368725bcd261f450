package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Roles & principal                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Principal is what a verified token resolves to and what we inject
// into r.Context().
type Principal struct {
	Role string
}

type ctxKey string

const principalKey ctxKey = "principal"

// CurrentPrincipal returns the caller & "found?" flag.
func CurrentPrincipal(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*Principal)
	return p, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Token verifier                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Verifier checks bearer tokens against bcrypt hashes configured at
// startup. An empty hash disables that role entirely.
type Verifier struct {
	adminHash  []byte
	viewerHash []byte
	log        *zap.Logger
}

// NewVerifier builds a Verifier from bcrypt hashes of the admin and
// viewer tokens. Hashes come from configuration; the plaintext tokens
// are never stored server-side.
func NewVerifier(adminHash, viewerHash string, logger *zap.Logger) *Verifier {
	v := &Verifier{log: logger}
	if adminHash != "" {
		v.adminHash = []byte(adminHash)
	}
	if viewerHash != "" {
		v.viewerHash = []byte(viewerHash)
	}
	if v.adminHash == nil && v.viewerHash == nil {
		logger.Warn("no auth token hashes configured; all API requests will be rejected")
	}
	return v
}

// resolve maps a presented token to a role, or "" when it matches
// neither hash.
func (v *Verifier) resolve(token string) string {
	if token == "" {
		return ""
	}
	if v.adminHash != nil &&
		bcrypt.CompareHashAndPassword(v.adminHash, []byte(token)) == nil {
		return RoleAdmin
	}
	if v.viewerHash != nil &&
		bcrypt.CompareHashAndPassword(v.viewerHash, []byte(token)) == nil {
		return RoleViewer
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadPrincipal resolves the Authorization header and, when the token is
// valid, injects the Principal into context. Requests without (or with a
// bad) token continue unauthenticated; RequireRole decides access.
func (v *Verifier) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role := v.resolve(bearerToken(r)); role != "" {
			r = withPrincipal(r, &Principal{Role: role})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the caller holds one of the allowed roles.
// Missing token → 401, valid token with the wrong role → 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := CurrentPrincipal(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, has := set[strings.ToLower(p.Role)]; !has {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is shorthand for the write-path guard.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}

// helpers

func withPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// WithTestPrincipal injects a principal directly; handler tests use it
// to skip token verification.
func WithTestPrincipal(r *http.Request, role string) *http.Request {
	return withPrincipal(r, &Principal{Role: role})
}
