// internal/app/features/registrations/routes.go
package registrations

import (
	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/system/auth"
)

// CamperRoutes mounts the camper intake endpoints under the base path
// (typically "/api/retreats/{id}/registrations" from bootstrap).
func CamperRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
		pr.Get("/", h.ServeCamperList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Post("/", h.HandleCamperCreate)
		pr.Put("/{rid}/status", h.HandleCamperStatus)
	})

	return r
}

// ServiceRoutes mounts the volunteer intake endpoints under the base path
// (typically "/api/retreats/{id}/service-registrations" from bootstrap).
func ServiceRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleViewer))
		pr.Get("/", h.ServeServiceList)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Post("/", h.HandleServiceCreate)
		pr.Put("/{rid}/status", h.HandleServiceStatus)
	})

	return r
}
