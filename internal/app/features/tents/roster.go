// internal/app/features/tents/roster.go
package tents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	tentroster "github.com/retreathub/retreathub/internal/app/roster/tents"
	tentstore "github.com/retreathub/retreathub/internal/app/store/tents"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// tentSnapshot is one tent's desired state in the update request.
// A null id creates a new tent.
type tentSnapshot struct {
	ID       *string  `json:"id"`
	Number   int      `json:"number"`
	Category string   `json:"category"`
	MinSize  int      `json:"min_size"`
	MaxSize  int      `json:"max_size"`
	Members  []string `json:"members"`
}

// updateRequest is the JSON body for PUT /api/retreats/{id}/tents.
type updateRequest struct {
	Version        int64          `json:"version"`
	IgnoreWarnings bool           `json:"ignore_warnings"`
	Tents          []tentSnapshot `json:"tents"`
}

// rosterResponse is the uniform reply shape for tent roster operations.
type rosterResponse struct {
	Version  int64             `json:"version"`
	Tents    []tentroster.View `json:"tents,omitempty"`
	Errors   []roster.Issue    `json:"errors,omitempty"`
	Warnings []roster.Issue    `json:"warnings,omitempty"`
}

func toCommand(req updateRequest) (tentroster.Command, error) {
	cmd := tentroster.Command{Snapshots: make([]tentroster.Snapshot, 0, len(req.Tents))}
	for i, t := range req.Tents {
		if !models.ValidGender(t.Category) {
			return tentroster.Command{}, fmt.Errorf("tents[%d].category: %q is not a valid category", i, t.Category)
		}
		snap := tentroster.Snapshot{
			Number:   t.Number,
			Category: models.Gender(t.Category),
			MinSize:  t.MinSize,
			MaxSize:  t.MaxSize,
		}
		if t.ID != nil {
			oid, err := primitive.ObjectIDFromHex(*t.ID)
			if err != nil {
				return tentroster.Command{}, fmt.Errorf("tents[%d].id: %q is not a valid id", i, *t.ID)
			}
			snap.ID = &oid
		}
		snap.Members = make([]primitive.ObjectID, 0, len(t.Members))
		for _, h := range t.Members {
			oid, err := primitive.ObjectIDFromHex(h)
			if err != nil {
				return tentroster.Command{}, fmt.Errorf("tents[%d].members: %q is not a valid id", i, h)
			}
			snap.Members = append(snap.Members, oid)
		}
		cmd.Snapshots = append(cmd.Snapshots, snap)
	}
	return cmd, nil
}

func writeResult(w http.ResponseWriter, res *roster.Result[tentroster.View]) {
	body := rosterResponse{
		Version:  res.Version,
		Tents:    res.Groups,
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

// ServeList returns the current tent roster version and projected views.
//
// Route: GET /api/retreats/{id}/tents
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
		apierrors.Internal(w, h.Log, "project tent roster", err)
		return
	}
	if views == nil {
		views = []tentroster.View{}
	}

	apierrors.JSON(w, http.StatusOK, rosterResponse{
		Version: retreat.Version(models.RosterTents),
		Tents:   views,
	})
}

// HandleUpdate reconciles the submitted tent snapshots against the stored
// roster. Tents absent from the request are left untouched.
//
// Route: PUT /api/retreats/{id}/tents
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
		h.writeFatal(w, "tent roster update", err)
		return
	}
	writeResult(w, res)
}

// HandleDelete removes a tent and its assignments, version-gated like every
// other roster mutation.
//
// Route: DELETE /api/retreats/{id}/tents/{tid}?version=N
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, ok := retreatID(w, r)
	if !ok {
		return
	}
	tid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "tid"))
	if err != nil {
		apierrors.BadRequest(w, "bad tent id")
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
	if retreat.Locked(models.RosterTents) {
		apierrors.Conflict(w, "tent roster is locked")
		return
	}
	if version != retreat.Version(models.RosterTents) {
		writeResult(w, &roster.Result[tentroster.View]{
			Version: retreat.Version(models.RosterTents),
			Errors:  []roster.Issue{roster.VersionMismatch(retreat.Version(models.RosterTents))},
		})
		return
	}

	tent, err := h.Tents.GetByID(ctx, tid)
	if err != nil {
		if errors.Is(err, tentstore.ErrNotFound) {
			apierrors.NotFound(w, "tent not found")
			return
		}
		apierrors.Internal(w, h.Log, "load tent", err)
		return
	}
	if tent.RetreatID != oid {
		apierrors.NotFound(w, "tent not found")
		return
	}
	if tent.Locked {
		apierrors.Conflict(w, "tent is locked")
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.Tents.Delete(ctx, oid, tid); err != nil {
			return err
		}
		return h.Retreats.BumpVersion(ctx, oid, models.RosterTents, version)
	})
	if errors.Is(err, roster.ErrVersionConflict) {
		current, gerr := h.Retreats.GetByID(ctx, oid)
		if gerr != nil {
			apierrors.Internal(w, h.Log, "reload retreat", gerr)
			return
		}
		writeResult(w, &roster.Result[tentroster.View]{
			Version: current.Version(models.RosterTents),
			Errors:  []roster.Issue{roster.VersionMismatch(current.Version(models.RosterTents))},
		})
		return
	}
	if err != nil {
		apierrors.Internal(w, h.Log, "delete tent", err)
		return
	}

	h.Log.Info("tent deleted",
		zap.String("retreat_id", oid.Hex()),
		zap.String("tent_id", tid.Hex()),
		zap.Int("number", tent.Number))
	apierrors.JSON(w, http.StatusOK, rosterResponse{Version: version + 1})
}

func (h *Handler) writeFatal(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, roster.ErrRetreatNotFound):
		apierrors.NotFound(w, "retreat not found")
	case errors.Is(err, roster.ErrRosterLocked):
		apierrors.Conflict(w, "tent roster is locked")
	default:
		apierrors.Internal(w, h.Log, op, err)
	}
}
