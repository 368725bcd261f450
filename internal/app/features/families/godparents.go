// internal/app/features/families/godparents.go
package families

import (
	"context"
	"net/http"

	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	famroster "github.com/retreathub/retreathub/internal/app/roster/families"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
)

// HandleGodparents rewrites godparent roles on one family's existing
// membership without touching who is a member. Same version gate and bump
// as the full snapshot path.
//
// Route: PUT /api/retreats/{id}/families/{fid}/godparents
func (h *Handler) HandleGodparents(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}
	fid, ok := familyID(w, r)
	if !ok {
		return
	}

	var req godparentsRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}

	cmd := famroster.GodparentsCommand{FamilyID: fid}
	var err error
	if cmd.Godfathers, err = parseIDList(req.Godfathers, "godfathers"); err != nil {
		apierrors.BadRequest(w, err.Error())
		return
	}
	if cmd.Godmothers, err = parseIDList(req.Godmothers, "godmothers"); err != nil {
		apierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Godparents.Reconcile(ctx, roster.Params{
		RetreatID:      oid,
		Version:        req.Version,
		IgnoreWarnings: req.IgnoreWarnings,
	}, cmd)
	if err != nil {
		writeFatal(w, h, "godparent update", err)
		return
	}
	writeResult(w, res)
}
