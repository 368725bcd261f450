// internal/app/features/families/list.go
package families

import (
	"context"
	"errors"
	"net/http"

	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	famroster "github.com/retreathub/retreathub/internal/app/roster/families"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/domain/models"
)

// ServeList returns the current family roster version and projected views.
//
// Route: GET /api/retreats/{id}/families
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	retreat, err := h.Retreats.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, roster.ErrRetreatNotFound) {
			apierrors.NotFound(w, "retreat not found")
			return
		}
		apierrors.Internal(w, h.Log, "load retreat", err)
		return
	}

	views, err := h.Roster.Project(ctx, oid)
	if err != nil {
		apierrors.Internal(w, h.Log, "project family roster", err)
		return
	}
	if views == nil {
		views = []famroster.View{}
	}

	apierrors.JSON(w, http.StatusOK, rosterResponse{
		Version:  retreat.Version(models.RosterFamilies),
		Families: views,
	})
}
