// internal/app/features/spaces/roster.go
package spaces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	spaceroster "github.com/retreathub/retreathub/internal/app/roster/spaces"
	spacestore "github.com/retreathub/retreathub/internal/app/store/spaces"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// spaceSnapshot is one service space's desired state in the update request.
// A null id creates a new space. Coordinator and vice must reference members.
type spaceSnapshot struct {
	ID          *string  `json:"id"`
	Name        string   `json:"name"`
	MinSize     int      `json:"min_size"`
	MaxSize     int      `json:"max_size"`
	Members     []string `json:"members"`
	Coordinator *string  `json:"coordinator"`
	Vice        *string  `json:"vice"`
}

// updateRequest is the JSON body for PUT /api/retreats/{id}/spaces.
type updateRequest struct {
	Version        int64           `json:"version"`
	IgnoreWarnings bool            `json:"ignore_warnings"`
	Spaces         []spaceSnapshot `json:"spaces"`
}

// rosterResponse is the uniform reply shape for space roster operations.
type rosterResponse struct {
	Version  int64              `json:"version"`
	Spaces   []spaceroster.View `json:"spaces,omitempty"`
	Errors   []roster.Issue     `json:"errors,omitempty"`
	Warnings []roster.Issue     `json:"warnings,omitempty"`
}

func toCommand(req updateRequest) (spaceroster.Command, error) {
	cmd := spaceroster.Command{Snapshots: make([]spaceroster.Snapshot, 0, len(req.Spaces))}
	for i, s := range req.Spaces {
		snap := spaceroster.Snapshot{
			Name:    s.Name,
			MinSize: s.MinSize,
			MaxSize: s.MaxSize,
		}
		if s.ID != nil {
			oid, err := primitive.ObjectIDFromHex(*s.ID)
			if err != nil {
				return spaceroster.Command{}, fmt.Errorf("spaces[%d].id: %q is not a valid id", i, *s.ID)
			}
			snap.ID = &oid
		}
		snap.Members = make([]primitive.ObjectID, 0, len(s.Members))
		for _, h := range s.Members {
			oid, err := primitive.ObjectIDFromHex(h)
			if err != nil {
				return spaceroster.Command{}, fmt.Errorf("spaces[%d].members: %q is not a valid id", i, h)
			}
			snap.Members = append(snap.Members, oid)
		}
		if s.Coordinator != nil {
			oid, err := primitive.ObjectIDFromHex(*s.Coordinator)
			if err != nil {
				return spaceroster.Command{}, fmt.Errorf("spaces[%d].coordinator: %q is not a valid id", i, *s.Coordinator)
			}
			snap.Coordinator = &oid
		}
		if s.Vice != nil {
			oid, err := primitive.ObjectIDFromHex(*s.Vice)
			if err != nil {
				return spaceroster.Command{}, fmt.Errorf("spaces[%d].vice: %q is not a valid id", i, *s.Vice)
			}
			snap.Vice = &oid
		}
		cmd.Snapshots = append(cmd.Snapshots, snap)
	}
	return cmd, nil
}

func writeResult(w http.ResponseWriter, res *roster.Result[spaceroster.View]) {
	body := rosterResponse{
		Version:  res.Version,
		Spaces:   res.Groups,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	switch {
	case res.Committed():
		apierrors.JSON(w, http.StatusOK, body)
	case hasCode(res.Errors, roster.CodeVersionMismatch):
		apierrors.JSON(w, http.StatusConflict, body)
	default:
		apierrors.JSON(w, http.StatusUnprocessableEntity, body)
	}
}

func hasCode(issues []roster.Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func retreatID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.BadRequest(w, "bad retreat id")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// ServeList returns the current space roster version and projected views.
//
// Route: GET /api/retreats/{id}/spaces
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
		apierrors.Internal(w, h.Log, "project space roster", err)
		return
	}
	if views == nil {
		views = []spaceroster.View{}
	}

	apierrors.JSON(w, http.StatusOK, rosterResponse{
		Version: retreat.Version(models.RosterSpaces),
		Spaces:  views,
	})
}

// HandleUpdate reconciles the submitted space snapshots against the stored
// roster. Spaces absent from the request are left untouched.
//
// Route: PUT /api/retreats/{id}/spaces
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
		h.writeFatal(w, "space roster update", err)
		return
	}
	writeResult(w, res)
}

// HandleDelete removes a service space and its assignments, version-gated
// like every other roster mutation.
//
// Route: DELETE /api/retreats/{id}/spaces/{sid}?version=N
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}
	sid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "sid"))
	if err != nil {
		apierrors.BadRequest(w, "bad space id")
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
	if retreat.Locked(models.RosterSpaces) {
		apierrors.Conflict(w, "space roster is locked")
		return
	}
	if version != retreat.Version(models.RosterSpaces) {
		writeResult(w, &roster.Result[spaceroster.View]{
			Version: retreat.Version(models.RosterSpaces),
			Errors:  []roster.Issue{roster.VersionMismatch(retreat.Version(models.RosterSpaces))},
		})
		return
	}

	space, err := h.Spaces.GetByID(ctx, sid)
	if err != nil {
		if errors.Is(err, spacestore.ErrNotFound) {
			apierrors.NotFound(w, "space not found")
			return
		}
		apierrors.Internal(w, h.Log, "load space", err)
		return
	}
	if space.RetreatID != oid {
		apierrors.NotFound(w, "space not found")
		return
	}
	if space.Locked {
		apierrors.Conflict(w, "space is locked")
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.Spaces.Delete(ctx, oid, sid); err != nil {
			return err
		}
		return h.Retreats.BumpVersion(ctx, oid, models.RosterSpaces, version)
	})
	if errors.Is(err, roster.ErrVersionConflict) {
		current, gerr := h.Retreats.GetByID(ctx, oid)
		if gerr != nil {
			apierrors.Internal(w, h.Log, "reload retreat", gerr)
			return
		}
		writeResult(w, &roster.Result[spaceroster.View]{
			Version: current.Version(models.RosterSpaces),
			Errors:  []roster.Issue{roster.VersionMismatch(current.Version(models.RosterSpaces))},
		})
		return
	}
	if err != nil {
		apierrors.Internal(w, h.Log, "delete space", err)
		return
	}

	h.Log.Info("service space deleted",
		zap.String("retreat_id", oid.Hex()),
		zap.String("space_id", sid.Hex()),
		zap.String("name", space.Name))
	apierrors.JSON(w, http.StatusOK, rosterResponse{Version: version + 1})
}

func (h *Handler) writeFatal(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, roster.ErrRetreatNotFound):
		apierrors.NotFound(w, "retreat not found")
	case errors.Is(err, roster.ErrRosterLocked):
		apierrors.Conflict(w, "space roster is locked")
	default:
		apierrors.Internal(w, h.Log, op, err)
	}
}
