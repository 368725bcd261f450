// internal/app/features/retreats/crud.go
package retreats

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/app/system/normalize"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// createRequest is the JSON body for POST /api/retreats.
type createRequest struct {
	Name     string    `json:"name"`
	Year     int       `json:"year"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// HandleCreate creates a retreat with all roster counters at zero.
//
// Route: POST /api/retreats
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}

	name := normalize.Name(req.Name)
	if name == "" {
		apierrors.BadRequest(w, "name is required")
		return
	}
	if req.Year < 2000 || req.Year > 2200 {
		apierrors.BadRequest(w, "year is out of range")
		return
	}
	if !req.EndsAt.IsZero() && req.EndsAt.Before(req.StartsAt) {
		apierrors.BadRequest(w, "ends_at precedes starts_at")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Store.Create(ctx, models.Retreat{
		Name:     name,
		Year:     req.Year,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		apierrors.Internal(w, h.Log, "create retreat", err)
		return
	}

	h.Log.Info("retreat created",
		zap.String("retreat_id", created.ID.Hex()),
		zap.String("name", created.Name))
	apierrors.JSON(w, http.StatusCreated, created)
}

// ServeList lists all retreats, newest first.
//
// Route: GET /api/retreats
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.List(ctx)
	if err != nil {
		apierrors.Internal(w, h.Log, "list retreats", err)
		return
	}
	if list == nil {
		list = []models.Retreat{}
	}
	apierrors.JSON(w, http.StatusOK, list)
}

// ServeGet returns one retreat with its per-kind versions and locks.
//
// Route: GET /api/retreats/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	oid, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	retreat, err := h.Store.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, roster.ErrRetreatNotFound) {
			apierrors.NotFound(w, "retreat not found")
			return
		}
		apierrors.Internal(w, h.Log, "get retreat", err)
		return
	}
	apierrors.JSON(w, http.StatusOK, retreat)
}

// lockRequest is the JSON body for PUT /api/retreats/{id}/locks.
type lockRequest struct {
	Kind   string `json:"kind"`
	Locked bool   `json:"locked"`
}

// HandleSetLock toggles the administrative freeze of one roster kind.
//
// Route: PUT /api/retreats/{id}/locks
func (h *Handler) HandleSetLock(w http.ResponseWriter, r *http.Request) {
	oid, ok := pathID(w, r)
	if !ok {
		return
	}

	var req lockRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	if !models.ValidRosterKind(req.Kind) {
		apierrors.BadRequest(w, "unknown roster kind")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Store.SetLock(ctx, oid, models.RosterKind(req.Kind), req.Locked); err != nil {
		if errors.Is(err, roster.ErrRetreatNotFound) {
			apierrors.NotFound(w, "retreat not found")
			return
		}
		apierrors.Internal(w, h.Log, "set roster lock", err)
		return
	}

	retreat, err := h.Store.GetByID(ctx, oid)
	if err != nil {
		apierrors.Internal(w, h.Log, "reload retreat", err)
		return
	}

	h.Log.Info("roster lock changed",
		zap.String("retreat_id", oid.Hex()),
		zap.String("kind", req.Kind),
		zap.Bool("locked", req.Locked))
	apierrors.JSON(w, http.StatusOK, retreat)
}

// pathID parses the {id} path parameter, writing a 400 on garbage input.
func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.BadRequest(w, "bad retreat id")
		return primitive.NilObjectID, false
	}
	return oid, true
}
