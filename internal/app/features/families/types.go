// internal/app/features/families/types.go
package families

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/retreathub/retreathub/internal/app/features/apierrors"
	"github.com/retreathub/retreathub/internal/app/roster"
	famroster "github.com/retreathub/retreathub/internal/app/roster/families"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// familySnapshot is one family's desired state in the update request.
// A null id creates a new family.
type familySnapshot struct {
	ID         *string  `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Capacity   int      `json:"capacity"`
	Members    []string `json:"members"`
	Godfathers []string `json:"godfathers"`
	Godmothers []string `json:"godmothers"`
}

// updateRequest is the JSON body for PUT /api/retreats/{id}/families.
type updateRequest struct {
	Version        int64            `json:"version"`
	IgnoreWarnings bool             `json:"ignore_warnings"`
	Families       []familySnapshot `json:"families"`
}

// godparentsRequest is the JSON body for PUT .../families/{fid}/godparents.
type godparentsRequest struct {
	Version        int64    `json:"version"`
	IgnoreWarnings bool     `json:"ignore_warnings"`
	Godfathers     []string `json:"godfathers"`
	Godmothers     []string `json:"godmothers"`
}

// rosterResponse is the uniform reply shape for family roster operations.
type rosterResponse struct {
	Version  int64            `json:"version"`
	Families []famroster.View `json:"families,omitempty"`
	Errors   []roster.Issue   `json:"errors,omitempty"`
	Warnings []roster.Issue   `json:"warnings,omitempty"`
}

// toCommand converts the wire snapshots into the engine command, validating
// id syntax only; referential checks belong to the rule table.
func toCommand(req updateRequest) (famroster.Command, error) {
	cmd := famroster.Command{Snapshots: make([]famroster.Snapshot, 0, len(req.Families))}
	for i, f := range req.Families {
		snap := famroster.Snapshot{
			Name:     f.Name,
			Color:    f.Color,
			Capacity: f.Capacity,
		}
		if f.ID != nil {
			oid, err := primitive.ObjectIDFromHex(*f.ID)
			if err != nil {
				return famroster.Command{}, fmt.Errorf("families[%d].id: %q is not a valid id", i, *f.ID)
			}
			snap.ID = &oid
		}
		var err error
		if snap.Members, err = parseIDList(f.Members, "members"); err != nil {
			return famroster.Command{}, fmt.Errorf("families[%d].%w", i, err)
		}
		if snap.Godfathers, err = parseIDList(f.Godfathers, "godfathers"); err != nil {
			return famroster.Command{}, fmt.Errorf("families[%d].%w", i, err)
		}
		if snap.Godmothers, err = parseIDList(f.Godmothers, "godmothers"); err != nil {
			return famroster.Command{}, fmt.Errorf("families[%d].%w", i, err)
		}
		cmd.Snapshots = append(cmd.Snapshots, snap)
	}
	return cmd, nil
}

func parseIDList(hexes []string, field string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		oid, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a valid id", field, h)
		}
		out = append(out, oid)
	}
	return out, nil
}

// writeResult maps the engine outcome onto HTTP: commit → 200, stale
// version → 409, rule violations → 422.
func writeResult(w http.ResponseWriter, res *roster.Result[famroster.View]) {
	body := rosterResponse{
		Version:  res.Version,
		Families: res.Groups,
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

// retreatID parses the {id} path parameter.
func retreatID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.BadRequest(w, "bad retreat id")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// familyID parses the {fid} path parameter.
func familyID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "fid"))
	if err != nil {
		apierrors.BadRequest(w, "bad family id")
		return primitive.NilObjectID, false
	}
	return oid, true
}
