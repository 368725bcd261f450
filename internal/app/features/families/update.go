// internal/app/features/families/update.go
package families

import (
	"context"
	"errors"
	"net/http"

	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
)

// HandleUpdate reconciles the submitted family snapshots against the stored
// roster. Families absent from the request are left untouched.
//
// Route: PUT /api/retreats/{id}/families
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	cmd, err := toCommand(req)
	if err != nil {
		apierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Engine.Reconcile(ctx, roster.Params{
		RetreatID:      oid,
		Version:        req.Version,
		IgnoreWarnings: req.IgnoreWarnings,
	}, cmd)
	if err != nil {
		writeFatal(w, h, "family roster update", err)
		return
	}
	writeResult(w, res)
}

// writeFatal maps engine-fatal errors onto HTTP statuses.
func writeFatal(w http.ResponseWriter, h *Handler, op string, err error) {
	switch {
	case errors.Is(err, roster.ErrRetreatNotFound):
		apierrors.NotFound(w, "retreat not found")
	case errors.Is(err, roster.ErrRosterLocked):
		apierrors.Conflict(w, "family roster is locked")
	default:
		apierrors.Internal(w, h.Log, op, err)
	}
}
