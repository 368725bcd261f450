// internal/app/features/families/routes.go
package families

import (
	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// Routes mounts the family roster endpoints under the base path
// (typically "/api/retreats/{id}/families" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
		pr.Get("/", h.ServeList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Put("/", h.HandleUpdate)
		pr.Put("/{fid}/godparents", h.HandleGodparents)
		pr.Delete("/{fid}", h.HandleDelete)
	})

	return r
}
