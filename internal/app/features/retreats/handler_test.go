// internal/app/features/retreats/handler_test.go
package retreats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/retreathub/retreathub/internal/domain/models"
	"github.com/retreathub/retreathub/internal/testutil"
)

func newRetreatsServer(t *testing.T) (*testutil.Fixtures, http.Handler) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/api/retreats", Routes(h, nil))
	return testutil.NewFixtures(t, db), r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreate_StartsWithZeroCounters(t *testing.T) {
	_, srv := newRetreatsServer(t)

	req := testutil.AdminRequest(http.MethodPost, "/api/retreats",
		testutil.JSONBody(`{"name": "Encontro de Verão", "year": 2027,
			"starts_at": "2027-01-15T00:00:00Z", "ends_at": "2027-01-18T00:00:00Z"}`))
	rec := do(t, srv, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created models.Retreat
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("created retreat must carry an id")
	}
	if created.FamiliesVersion != 0 || created.TentsVersion != 0 || created.SpacesVersion != 0 {
		t.Errorf("counters = %d/%d/%d, want all zero",
			created.FamiliesVersion, created.TentsVersion, created.SpacesVersion)
	}
	if created.FamiliesLocked || created.TentsLocked || created.SpacesLocked {
		t.Error("new retreat must start unlocked")
	}
}

func TestCreate_Validation(t *testing.T) {
	_, srv := newRetreatsServer(t)

	cases := map[string]string{
		"missing name": `{"year": 2027}`,
		"year too low": `{"name": "Encontro", "year": 1999}`,
		"ends before starts": `{"name": "Encontro", "year": 2027,
			"starts_at": "2027-01-18T00:00:00Z", "ends_at": "2027-01-15T00:00:00Z"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := testutil.AdminRequest(http.MethodPost, "/api/retreats", testutil.JSONBody(body))
			if rec := do(t, srv, req); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGet_ReturnsVersionsAndLocks(t *testing.T) {
	fx, srv := newRetreatsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	fx.SetRosterVersion(ctx, retreat.ID, models.RosterTents, 5)
	fx.LockRoster(ctx, retreat.ID, models.RosterSpaces, true)

	req := testutil.ViewerRequest(http.MethodGet, "/api/retreats/"+retreat.ID.Hex(), nil)
	rec := do(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got models.Retreat
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TentsVersion != 5 {
		t.Errorf("tents_version = %d, want 5", got.TentsVersion)
	}
	if !got.SpacesLocked || got.FamiliesLocked {
		t.Errorf("locks = %v/%v/%v", got.FamiliesLocked, got.TentsLocked, got.SpacesLocked)
	}

	req = testutil.ViewerRequest(http.MethodGet,
		"/api/retreats/"+primitive.NewObjectID().Hex(), nil)
	if rec := do(t, srv, req); rec.Code != http.StatusNotFound {
		t.Errorf("missing retreat status = %d, want 404", rec.Code)
	}
}

func TestSetLock_TogglesOneKind(t *testing.T) {
	fx, srv := newRetreatsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)
	target := "/api/retreats/" + retreat.ID.Hex() + "/locks"

	req := testutil.AdminRequest(http.MethodPut, target,
		testutil.JSONBody(`{"kind": "families", "locked": true}`))
	rec := do(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got models.Retreat
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.FamiliesLocked {
		t.Error("families lock must be set")
	}
	if got.TentsLocked || got.SpacesLocked {
		t.Error("other kinds must stay unlocked")
	}

	req = testutil.AdminRequest(http.MethodPut, target,
		testutil.JSONBody(`{"kind": "families", "locked": false}`))
	rec = do(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FamiliesLocked {
		t.Error("families lock must be cleared again")
	}

	req = testutil.AdminRequest(http.MethodPut, target,
		testutil.JSONBody(`{"kind": "cabins", "locked": true}`))
	if rec := do(t, srv, req); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestList_NewestFirstForViewer(t *testing.T) {
	fx, srv := newRetreatsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateRetreat(ctx, "Primeiro", 2025)
	fx.CreateRetreat(ctx, "Segundo", 2026)

	req := testutil.ViewerRequest(http.MethodGet, "/api/retreats", nil)
	rec := do(t, srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var list []models.Retreat
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d entries, want 2", len(list))
	}
}

func TestRoutes_AuthBoundaries(t *testing.T) {
	fx, srv := newRetreatsServer(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	retreat := fx.CreateRetreat(ctx, "Acampamento", 2026)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/retreats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous GET status = %d, want 401", rec.Code)
	}

	req := testutil.ViewerRequest(http.MethodPost, "/api/retreats",
		testutil.JSONBody(`{"name": "Encontro", "year": 2027}`))
	if rec := do(t, srv, req); rec.Code != http.StatusForbidden {
		t.Errorf("viewer POST status = %d, want 403", rec.Code)
	}

	req = testutil.ViewerRequest(http.MethodPut,
		"/api/retreats/"+retreat.ID.Hex()+"/locks",
		testutil.JSONBody(`{"kind": "families", "locked": true}`))
	if rec := do(t, srv, req); rec.Code != http.StatusForbidden {
		t.Errorf("viewer lock toggle status = %d, want 403", rec.Code)
	}
}
