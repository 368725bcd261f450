// internal/app/features/retreats/routes.go
package retreats

import (
	"github.com/go-chi/chi/v5"

	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// Routes mounts the retreat endpoints under the base path (typically
// "/api/retreats" from bootstrap). The rosters callback, when non-nil, is
// invoked on the per-retreat subrouter so bootstrap can hang the roster and
// registration features under /{id} without a routing collision.
func Routes(h *Handler, rosters func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.With(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer)).Get("/", h.ServeList)
	r.With(auth.RequireAdmin).Post("/", h.HandleCreate)

	r.Route("/{id}", func(r chi.Router) {
		r.With(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer)).Get("/", h.ServeGet)
		r.With(auth.RequireAdmin).Put("/locks", h.HandleSetLock)
		if rosters != nil {
			rosters(r)
		}
	})

	return r
}
