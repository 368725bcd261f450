// internal/app/features/spaces/routes.go
package spaces

import (
	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// Routes mounts the service space endpoints under the base path
// (typically "/api/retreats/{id}/spaces" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Put("/", h.HandleUpdate)
		pr.Delete("/{sid}", h.HandleDelete)
	})

	return r
}
