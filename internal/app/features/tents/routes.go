// internal/app/features/tents/routes.go
package tents

import (
	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// Routes mounts the tent roster endpoints under the base path
// (typically "/api/retreats/{id}/tents" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Put("/", h.HandleUpdate)
		pr.Delete("/{tid}", h.HandleDelete)
	})

	return r
}
