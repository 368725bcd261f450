package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call handlers directly instead of going
// through a router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// AdminRequest creates an HTTP request carrying the admin principal,
// bypassing the bearer-token middleware.
func AdminRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return auth.WithTestPrincipal(req, auth.RoleAdmin)
}

// ViewerRequest creates an HTTP request carrying the viewer principal.
func ViewerRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return auth.WithTestPrincipal(req, auth.RoleViewer)
}

// JSONBody wraps a JSON literal for use as a request body.
func JSONBody(s string) io.Reader {
	return strings.NewReader(s)
}
