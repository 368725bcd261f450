// internal/app/store/registrations/registrationstore_test.go
package registrationstore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/retreathub/retreathub/internal/domain/models"
	"github.com/retreathub/retreathub/internal/testutil"
)

func TestConfirmServicePayment_PromotesConfirmed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)
	reg := fx.CreateServiceRegistration(ctx, retreat.ID, "Helena Prado", models.GenderFemale, nil)

	s := New(db)
	if err := s.ConfirmServicePayment(ctx, reg.ID); err != nil {
		t.Fatalf("ConfirmServicePayment: %v", err)
	}

	got, err := s.GetServiceByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("GetServiceByID: %v", err)
	}
	if got.Status != models.StatusPaymentConfirmed {
		t.Errorf("status = %q, want payment_confirmed", got.Status)
	}
}

func TestConfirmServicePayment_ReplayIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)
	reg := fx.CreateServiceRegistration(ctx, retreat.ID, "Tiago Nunes", models.GenderMale, nil)

	s := New(db)
	if err := s.ConfirmServicePayment(ctx, reg.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if err := s.ConfirmServicePayment(ctx, reg.ID); err != nil {
		t.Fatalf("redelivered confirm must be harmless, got %v", err)
	}

	got, err := s.GetServiceByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("GetServiceByID: %v", err)
	}
	if got.Status != models.StatusPaymentConfirmed {
		t.Errorf("status = %q, want payment_confirmed", got.Status)
	}
}

func TestConfirmServicePayment_TerminalStatusRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)
	s := New(db)

	for _, status := range []models.RegistrationStatus{models.StatusCancelled, models.StatusDeclined} {
		reg := fx.CreateServiceRegistration(ctx, retreat.ID, "Bruno "+string(status), models.GenderMale, nil)
		if err := s.SetServiceStatus(ctx, reg.ID, status); err != nil {
			t.Fatalf("SetServiceStatus(%s): %v", status, err)
		}

		err := s.ConfirmServicePayment(ctx, reg.ID)
		if !errors.Is(err, ErrBadTransition) {
			t.Errorf("confirm from %s: err = %v, want ErrBadTransition", status, err)
		}

		got, err := s.GetServiceByID(ctx, reg.ID)
		if err != nil {
			t.Fatalf("GetServiceByID: %v", err)
		}
		if got.Status != status {
			t.Errorf("status after rejected confirm = %q, want %q", got.Status, status)
		}
	}
}

func TestConfirmServicePayment_MissingRegistration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	err := s.ConfirmServicePayment(ctx, primitive.NewObjectID())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateCamper_NormalizesIdentity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)

	s := New(db)
	created, err := s.CreateCamper(ctx, models.Registration{
		RetreatID: retreat.ID,
		FullName:  "  Jose Da Silva  ",
		Email:     " Jose.Silva@EXAMPLE.COM ",
		Gender:    models.GenderMale,
		City:      " Sao Paulo ",
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("CreateCamper: %v", err)
	}
	if created.FullName != "Jose Da Silva" {
		t.Errorf("full_name = %q", created.FullName)
	}
	if created.FullNameCI != "jose da silva" {
		t.Errorf("full_name_ci = %q", created.FullNameCI)
	}
	if created.Email != "jose.silva@example.com" {
		t.Errorf("email = %q", created.Email)
	}
	if created.CityCI != "sao paulo" {
		t.Errorf("city_ci = %q", created.CityCI)
	}
	if created.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
}

func TestListCampers_ScopedAndSorted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)
	other := fx.CreateRetreat(ctx, "Acampamento 2027", 2027)

	fx.CreateCamper(ctx, retreat.ID, "Zilda Costa", models.GenderFemale, "Campinas")
	fx.CreateCamper(ctx, retreat.ID, "Ana Beatriz", models.GenderFemale, "Campinas")
	fx.CreateCamper(ctx, other.ID, "Marcos Reis", models.GenderMale, "Campinas")

	s := New(db)
	got, err := s.ListCampers(ctx, retreat.ID)
	if err != nil {
		t.Fatalf("ListCampers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("campers = %d, want 2", len(got))
	}
	if got[0].FullName != "Ana Beatriz" || got[1].FullName != "Zilda Costa" {
		t.Errorf("order = %q, %q", got[0].FullName, got[1].FullName)
	}
}

func TestMapCampersByIDs_SkipsMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	retreat := fx.CreateRetreat(ctx, "Acampamento 2026", 2026)
	known := fx.CreateCamper(ctx, retreat.ID, "Rafael Dias", models.GenderMale, "Campinas")
	missing := primitive.NewObjectID()

	s := New(db)
	got, err := s.MapCampersByIDs(ctx, []primitive.ObjectID{known.ID, missing})
	if err != nil {
		t.Fatalf("MapCampersByIDs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("map size = %d, want 1", len(got))
	}
	if _, ok := got[known.ID]; !ok {
		t.Error("known camper absent from map")
	}
	if _, ok := got[missing]; ok {
		t.Error("missing id must not appear in map")
	}
}
