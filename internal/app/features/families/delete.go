// internal/app/features/families/delete.go
package families

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	famroster "github.com/retreathub/retreathub/internal/app/roster/families"
	familystore "github.com/retreathub/retreathub/internal/app/store/families"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleDelete removes a family and its membership rows. The operation is
// version-gated like every other roster mutation and bumps the family
// counter on success.
//
// Route: DELETE /api/retreats/{id}/families/{fid}?version=N
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}
	fid, ok := familyID(w, r)
	if !ok {
		return
	}
	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil {
		apierrors.BadRequest(w, "version query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
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
	if retreat.Locked(models.RosterFamilies) {
		apierrors.Conflict(w, "family roster is locked")
		return
	}
	if version != retreat.Version(models.RosterFamilies) {
		writeResult(w, &roster.Result[famroster.View]{
			Version: retreat.Version(models.RosterFamilies),
			Errors:  []roster.Issue{roster.VersionMismatch(retreat.Version(models.RosterFamilies))},
		})
		return
	}

	family, err := h.Families.GetByID(ctx, fid)
	if err != nil {
		if errors.Is(err, familystore.ErrNotFound) {
			apierrors.NotFound(w, "family not found")
			return
		}
		apierrors.Internal(w, h.Log, "load family", err)
		return
	}
	if family.RetreatID != oid {
		apierrors.NotFound(w, "family not found")
		return
	}
	if family.Locked {
		apierrors.Conflict(w, "family is locked")
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.Families.Delete(ctx, oid, fid); err != nil {
			return err
		}
		return h.Retreats.BumpVersion(ctx, oid, models.RosterFamilies, version)
	})
	if errors.Is(err, roster.ErrVersionConflict) {
		current, gerr := h.Retreats.GetByID(ctx, oid)
		if gerr != nil {
			apierrors.Internal(w, h.Log, "reload retreat", gerr)
			return
		}
		writeResult(w, &roster.Result[famroster.View]{
			Version: current.Version(models.RosterFamilies),
			Errors:  []roster.Issue{roster.VersionMismatch(current.Version(models.RosterFamilies))},
		})
		return
	}
	if err != nil {
		apierrors.Internal(w, h.Log, "delete family", err)
		return
	}

	h.Log.Info("family deleted",
		zap.String("retreat_id", oid.Hex()),
		zap.String("family_id", fid.Hex()),
		zap.String("name", family.Name))
	apierrors.JSON(w, http.StatusOK, rosterResponse{Version: version + 1})
}
