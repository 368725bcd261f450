// internal/app/features/registrations/intake.go
package registrations

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	"github.com/retreathub/retreathub/internal/app/system/normalize"
	"github.com/retreathub/retreathub/internal/app/system/sanitize"
	"github.com/retreathub/retreathub/internal/app/system/timeouts"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// intakeRequest is the shared JSON body for registration intake. Free-text
// fields pass through sanitize.Text before storage.
type intakeRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	City     string `json:"city"`
	Notes    string `json:"notes"`

	// Volunteers only: declared preference for auto-assignment.
	PreferredSpaceID *string `json:"preferred_space_id,omitempty"`
}

// validate cleans the intake fields in place and reports the first problem.
func (req *intakeRequest) validate() string {
	req.FullName = sanitize.Text(req.FullName)
	req.City = sanitize.Text(req.City)
	req.Notes = sanitize.Text(req.Notes)
	req.Email = normalize.Email(req.Email)
	req.Phone = normalize.Phone(req.Phone)
	req.Gender = normalize.Gender(req.Gender)

	switch {
	case req.FullName == "":
		return "full_name is required"
	case req.Email == "":
		return "email is required"
	case !models.ValidGender(req.Gender):
		return "gender must be male or female"
	}
	return ""
}

// statusRequest is the JSON body for status transitions.
type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) retreatID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.BadRequest(w, "bad retreat id")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// checkRetreat confirms the aggregate exists before intake writes.
func (h *Handler) checkRetreat(ctx context.Context, w http.ResponseWriter, oid primitive.ObjectID) bool {
	if _, err := h.Retreats.GetByID(ctx, oid); err != nil {
		if errors.Is(err, roster.ErrRetreatNotFound) {
			apierrors.NotFound(w, "retreat not found")
			return false
		}
		apierrors.Internal(w, h.Log, "load retreat", err)
		return false
	}
	return true
}

/* ------------------------------- campers -------------------------------- */

// HandleCamperCreate registers a camper in pending status.
//
// Route: POST /api/retreats/{id}/registrations
func (h *Handler) HandleCamperCreate(w http.ResponseWriter, r *http.Request) {
	oid, ok := h.retreatID(w, r)
	if !ok {
		return
	}

	var req intakeRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		apierrors.BadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.checkRetreat(ctx, w, oid) {
		return
	}

	created, err := h.Store.CreateCamper(ctx, models.Registration{
		RetreatID: oid,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Gender:    models.Gender(req.Gender),
		City:      req.City,
		Notes:     req.Notes,
		Enabled:   true,
	})
	if err != nil {
		apierrors.Internal(w, h.Log, "create camper registration", err)
		return
	}

	h.Log.Info("camper registered",
		zap.String("retreat_id", oid.Hex()),
		zap.String("registration_id", created.ID.Hex()))
	apierrors.JSON(w, http.StatusCreated, created)
}

// ServeCamperList lists a retreat's camper registrations sorted by name.
//
// Route: GET /api/retreats/{id}/registrations
func (h *Handler) ServeCamperList(w http.ResponseWriter, r *http.Request) {
	oid, ok := h.retreatID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.ListCampers(ctx, oid)
	if err != nil {
		apierrors.Internal(w, h.Log, "list camper registrations", err)
		return
	}
	if list == nil {
		list = []models.Registration{}
	}
	apierrors.JSON(w, http.StatusOK, list)
}

// HandleCamperStatus sets a camper's lifecycle status (admin path, no
// transition restrictions).
//
// Route: PUT /api/retreats/{id}/registrations/{rid}/status
func (h *Handler) HandleCamperStatus(w http.ResponseWriter, r *http.Request) {
	rid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "rid"))
	if err != nil {
		apierrors.BadRequest(w, "bad registration id")
		return
	}

	var req statusRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	status := normalize.Status(req.Status)
	if !models.ValidStatus(status) {
		apierrors.BadRequest(w, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Store.SetCamperStatus(ctx, rid, models.RegistrationStatus(status)); err != nil {
		if errors.Is(err, registrationstore.ErrNotFound) {
			apierrors.NotFound(w, "registration not found")
			return
		}
		apierrors.Internal(w, h.Log, "set camper status", err)
		return
	}

	h.Log.Info("camper status changed",
		zap.String("registration_id", rid.Hex()),
		zap.String("status", status))
	w.WriteHeader(http.StatusNoContent)
}

/* ------------------------------ volunteers ------------------------------- */

// HandleServiceCreate registers a volunteer in pending status, optionally
// recording a preferred service space.
//
// Route: POST /api/retreats/{id}/service-registrations
func (h *Handler) HandleServiceCreate(w http.ResponseWriter, r *http.Request) {
	oid, ok := h.retreatID(w, r)
	if !ok {
		return
	}

	var req intakeRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		apierrors.BadRequest(w, msg)
		return
	}

	reg := models.ServiceRegistration{
		RetreatID: oid,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Gender:    models.Gender(req.Gender),
		City:      req.City,
		Notes:     req.Notes,
		Enabled:   true,
	}
	if req.PreferredSpaceID != nil {
		sid, err := primitive.ObjectIDFromHex(*req.PreferredSpaceID)
		if err != nil {
			apierrors.BadRequest(w, "bad preferred_space_id")
			return
		}
		reg.PreferredSpaceID = &sid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.checkRetreat(ctx, w, oid) {
		return
	}

	created, err := h.Store.CreateService(ctx, reg)
	if err != nil {
		apierrors.Internal(w, h.Log, "create service registration", err)
		return
	}

	h.Log.Info("volunteer registered",
		zap.String("retreat_id", oid.Hex()),
		zap.String("registration_id", created.ID.Hex()))
	apierrors.JSON(w, http.StatusCreated, created)
}

// ServeServiceList lists a retreat's volunteer registrations sorted by name.
//
// Route: GET /api/retreats/{id}/service-registrations
func (h *Handler) ServeServiceList(w http.ResponseWriter, r *http.Request) {
	oid, ok := h.retreatID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.ListService(ctx, oid)
	if err != nil {
		apierrors.Internal(w, h.Log, "list service registrations", err)
		return
	}
	if list == nil {
		list = []models.ServiceRegistration{}
	}
	apierrors.JSON(w, http.StatusOK, list)
}

// HandleServiceStatus sets a volunteer's lifecycle status.
//
// Route: PUT /api/retreats/{id}/service-registrations/{rid}/status
func (h *Handler) HandleServiceStatus(w http.ResponseWriter, r *http.Request) {
	rid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "rid"))
	if err != nil {
		apierrors.BadRequest(w, "bad registration id")
		return
	}

	var req statusRequest
	if !apierrors.Decode(w, r, &req) {
		return
	}
	status := normalize.Status(req.Status)
	if !models.ValidStatus(status) {
		apierrors.BadRequest(w, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Store.SetServiceStatus(ctx, rid, models.RegistrationStatus(status)); err != nil {
		if errors.Is(err, registrationstore.ErrNotFound) {
			apierrors.NotFound(w, "registration not found")
			return
		}
		apierrors.Internal(w, h.Log, "set service status", err)
		return
	}

	h.Log.Info("volunteer status changed",
		zap.String("registration_id", rid.Hex()),
		zap.String("status", status))
	w.WriteHeader(http.StatusNoContent)
}
