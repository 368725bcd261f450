// internal/app/features/tents/handler_test.go
package tents

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/retreathub/retreathub/internal/app/roster"
	tentroster "github.com/retreathub/retreathub/internal/app/roster/tents"
	"github.com/retreathub/retreathub/internal/domain/models"
	"github.com/retreathub/retreathub/internal/testutil"
)

type rosterReply struct {
	Version  int64             `json:"version"`
	Tents    []tentroster.View `json:"tents"`
	Errors   []roster.Issue    `json:"errors"`
	Warnings []roster.Issue    `json:"warnings"`
}

func newTentsServer(t *testing.T) (*testutil.Fixtures, http.Handler) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/api/retreats/{id}", func(r chi.Router) {
		r.Mount("/tents", Routes(h))
	})
	return testutil.NewFixtures(t, db), r
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, rosterReply) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var reply rosterReply
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &reply)
	}
	return rec, reply
}

func replyHasCode(issues []roster.Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestUpdate_CreatesTentAndBumpsVersion(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	a := fx.CreateCamper(ctx, retreat.ID, "João Alves", models.GenderMale, "Recife")
	b := fx.CreateCamper(ctx, retreat.ID, "Pedro Costa", models.GenderMale, "Natal")

	body := fmt.Sprintf(`{
		"version": 0,
		"tents": [{"id": null, "number": 7, "category": "male",
			"min_size": 2, "max_size": 4, "members": [%q, %q]}]
	}`, a.ID.Hex(), b.ID.Hex())

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents", testutil.JSONBody(body))
	rec, reply := serve(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reply.Version != 1 {
		t.Errorf("version = %d, want 1", reply.Version)
	}
	if len(reply.Tents) != 1 {
		t.Fatalf("tents = %d, want 1", len(reply.Tents))
	}
	view := reply.Tents[0]
	if view.Number != 7 || view.Category != models.GenderMale {
		t.Errorf("view = %d/%s", view.Number, view.Category)
	}
	if view.Total != 2 || view.Remaining != 2 {
		t.Errorf("occupancy = %d/%d, want 2 occupied, 2 remaining", view.Total, view.Remaining)
	}
}

func TestUpdate_StaleVersionReturnsConflict(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	fx.SetRosterVersion(ctx, retreat.ID, models.RosterTents, 2)

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents",
		testutil.JSONBody(`{"version": 1, "tents": []}`))
	rec, reply := serve(t, srv, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !replyHasCode(reply.Errors, roster.CodeVersionMismatch) {
		t.Errorf("errors = %+v, want VERSION_MISMATCH", reply.Errors)
	}
	if reply.Version != 2 {
		t.Errorf("reply version = %d, want current 2", reply.Version)
	}
}

func TestUpdate_CategoryMismatchRejected(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	woman := fx.CreateCamper(ctx, retreat.ID, "Maria Lima", models.GenderFemale, "Olinda")

	body := fmt.Sprintf(`{
		"version": 0,
		"tents": [{"id": null, "number": 1, "category": "male",
			"min_size": 0, "max_size": 4, "members": [%q]}]
	}`, woman.ID.Hex())

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents", testutil.JSONBody(body))
	rec, reply := serve(t, srv, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !replyHasCode(reply.Errors, roster.CodeWrongCategory) {
		t.Errorf("errors = %+v, want WRONG_CATEGORY", reply.Errors)
	}

	count, err := fx.DB().Collection("tents").CountDocuments(ctx,
		map[string]any{"retreat_id": retreat.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("rejected snapshot must not create a tent")
	}
}

func TestUpdate_UnderMinimumWarnsThenCommits(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	only := fx.CreateCamper(ctx, retreat.ID, "João Alves", models.GenderMale, "Recife")

	body := fmt.Sprintf(`{
		"version": 0,
		"tents": [{"id": null, "number": 3, "category": "male",
			"min_size": 4, "max_size": 8, "members": [%q]}]
	}`, only.ID.Hex())

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents", testutil.JSONBody(body))
	rec, reply := serve(t, srv, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !replyHasCode(reply.Warnings, roster.CodeBelowMinimum) {
		t.Errorf("warnings = %+v, want BELOW_MINIMUM", reply.Warnings)
	}

	retry := fmt.Sprintf(`{
		"version": 0, "ignore_warnings": true,
		"tents": [{"id": null, "number": 3, "category": "male",
			"min_size": 4, "max_size": 8, "members": [%q]}]
	}`, only.ID.Hex())

	req = testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents", testutil.JSONBody(retry))
	rec, reply = serve(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ignored retry status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reply.Version != 1 {
		t.Errorf("version = %d, want 1", reply.Version)
	}
}

func TestUpdate_BadCategoryIsBadRequest(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents",
		testutil.JSONBody(`{"version": 0, "tents": [{"id": null, "number": 1,
			"category": "mixed", "min_size": 0, "max_size": 4, "members": []}]}`))
	rec, _ := serve(t, srv, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdate_LockedRoster(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	fx.LockRoster(ctx, retreat.ID, models.RosterTents, true)

	req := testutil.AdminRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/tents",
		testutil.JSONBody(`{"version": 0, "tents": []}`))
	rec, _ := serve(t, srv, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestList_ReturnsVersionAndViews(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	tent := fx.CreateTent(ctx, retreat.ID, 12, models.GenderFemale, 2, 6)
	camper := fx.CreateCamper(ctx, retreat.ID, "Maria Lima", models.GenderFemale, "Olinda")
	fx.AddTentAssignment(ctx, tent, camper.ID, 1)
	fx.SetRosterVersion(ctx, retreat.ID, models.RosterTents, 3)

	req := testutil.ViewerRequest(http.MethodGet,
		"/api/retreats/"+retreat.ID.Hex()+"/tents", nil)
	rec, reply := serve(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reply.Version != 3 {
		t.Errorf("version = %d, want 3", reply.Version)
	}
	if len(reply.Tents) != 1 || reply.Tents[0].Total != 1 {
		t.Fatalf("tents = %+v, want one tent with one occupant", reply.Tents)
	}
}

func TestRoutes_AuthBoundaries(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	base := "/api/retreats/" + retreat.ID.Hex() + "/tents"

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous GET status = %d, want 401", rec.Code)
	}

	req := testutil.ViewerRequest(http.MethodPut, base,
		testutil.JSONBody(`{"version": 0, "tents": []}`))
	rec, _ = serve(t, srv, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer PUT status = %d, want 403", rec.Code)
	}
}

func TestDelete_VersionGatedFlow(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	tent := fx.CreateTent(ctx, retreat.ID, 5, models.GenderMale, 0, 4)
	camper := fx.CreateCamper(ctx, retreat.ID, "João Alves", models.GenderMale, "Recife")
	fx.AddTentAssignment(ctx, tent, camper.ID, 1)
	fx.SetRosterVersion(ctx, retreat.ID, models.RosterTents, 2)

	base := "/api/retreats/" + retreat.ID.Hex() + "/tents/" + tent.ID.Hex()

	req := testutil.AdminRequest(http.MethodDelete, base, nil)
	rec, _ := serve(t, srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing version status = %d, want 400", rec.Code)
	}

	req = testutil.AdminRequest(http.MethodDelete, base+"?version=1", nil)
	rec, reply := serve(t, srv, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale version status = %d, want 409", rec.Code)
	}
	if !replyHasCode(reply.Errors, roster.CodeVersionMismatch) {
		t.Errorf("errors = %+v, want VERSION_MISMATCH", reply.Errors)
	}

	req = testutil.AdminRequest(http.MethodDelete, base+"?version=2", nil)
	rec, reply = serve(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reply.Version != 3 {
		t.Errorf("version = %d, want 3", reply.Version)
	}

	tents, err := fx.DB().Collection("tents").CountDocuments(ctx,
		map[string]any{"_id": tent.ID})
	if err != nil {
		t.Fatalf("count tents: %v", err)
	}
	assignments, err := fx.DB().Collection("tent_assignments").CountDocuments(ctx,
		map[string]any{"tent_id": tent.ID})
	if err != nil {
		t.Fatalf("count assignments: %v", err)
	}
	if tents != 0 || assignments != 0 {
		t.Errorf("leftovers after delete: tents=%d assignments=%d", tents, assignments)
	}
}

func TestDelete_GuardsTentState(t *testing.T) {
	fx, srv := newTentsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	other := fx.CreateRetreat(ctx, "Outro", 2026)
	foreign := fx.CreateTent(ctx, other.ID, 9, models.GenderMale, 0, 4)

	req := testutil.AdminRequest(http.MethodDelete,
		"/api/retreats/"+retreat.ID.Hex()+"/tents/"+foreign.ID.Hex()+"?version=0", nil)
	rec, _ := serve(t, srv, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign tent status = %d, want 404", rec.Code)
	}

	locked := fx.CreateTent(ctx, retreat.ID, 10, models.GenderMale, 0, 4)
	if _, err := fx.DB().Collection("tents").UpdateByID(ctx, locked.ID,
		map[string]any{"$set": map[string]any{"locked": true}}); err != nil {
		t.Fatalf("lock tent: %v", err)
	}

	req = testutil.AdminRequest(http.MethodDelete,
		"/api/retreats/"+retreat.ID.Hex()+"/tents/"+locked.ID.Hex()+"?version=0", nil)
	rec, _ = serve(t, srv, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("locked tent status = %d, want 409", rec.Code)
	}
}
