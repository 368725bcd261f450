// internal/app/store/payments/paymentstore_test.go
package paymentstore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/retreathub/retreathub/internal/domain/models"
	"github.com/retreathub/retreathub/internal/testutil"
)

func TestEnsurePaid_CreatesThenNoOps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.EnsurePaid(ctx, "evt-001", 25000, "BRL", "pix", paidAt)
	if err != nil {
		t.Fatalf("EnsurePaid: %v", err)
	}
	if first.Status != models.PaymentPaid {
		t.Errorf("status = %q, want paid", first.Status)
	}
	if first.Amount != 25000 || first.Currency != "BRL" {
		t.Errorf("payment = %d %s", first.Amount, first.Currency)
	}

	// replay with different incidental fields must not duplicate or mutate
	second, err := s.EnsurePaid(ctx, "evt-001", 99999, "USD", "card", paidAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("EnsurePaid replay: %v", err)
	}
	if second.ID != first.ID {
		t.Error("replay must return the same payment record")
	}
	if second.Amount != 25000 {
		t.Errorf("replay amount = %d, original must win", second.Amount)
	}

	count, err := db.Collection("payments").CountDocuments(ctx,
		bson.M{"external_id": "evt-001"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("payments = %d, want exactly 1", count)
	}
}

func TestEnsurePaid_PromotesPendingRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	pending := models.Payment{
		ID:         primitive.NewObjectID(),
		ExternalID: "evt-002",
		Amount:     18000,
		Currency:   "BRL",
		Method:     "boleto",
		Status:     models.PaymentPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := db.Collection("payments").InsertOne(ctx, pending); err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	s := New(db)
	paidAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	got, err := s.EnsurePaid(ctx, "evt-002", 18000, "BRL", "boleto", paidAt)
	if err != nil {
		t.Fatalf("EnsurePaid: %v", err)
	}
	if got.ID != pending.ID {
		t.Error("must promote the existing record, not create a new one")
	}
	if got.Status != models.PaymentPaid {
		t.Errorf("status = %q, want paid", got.Status)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("paid_at = %v, want %v", got.PaidAt, paidAt)
	}
}

func TestLink_IsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	regID := primitive.NewObjectID()
	payID := primitive.NewObjectID()

	created, err := s.Link(ctx, regID, payID)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !created {
		t.Error("first link must report created")
	}

	created, err = s.Link(ctx, regID, payID)
	if err != nil {
		t.Fatalf("Link replay: %v", err)
	}
	if created {
		t.Error("second link must report already present")
	}

	count, err := db.Collection("registration_payments").CountDocuments(ctx,
		bson.M{"registration_id": regID, "payment_id": payID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("links = %d, want exactly 1", count)
	}
}

func TestListByRegistration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := New(db)
	regID := primitive.NewObjectID()
	paidAt := time.Now().UTC()

	p1, err := s.EnsurePaid(ctx, "evt-a", 10000, "BRL", "pix", paidAt)
	if err != nil {
		t.Fatalf("EnsurePaid: %v", err)
	}
	p2, err := s.EnsurePaid(ctx, "evt-b", 5000, "BRL", "pix", paidAt)
	if err != nil {
		t.Fatalf("EnsurePaid: %v", err)
	}
	if _, err := s.Link(ctx, regID, p1.ID); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if _, err := s.Link(ctx, regID, p2.ID); err != nil {
		t.Fatalf("Link: %v", err)
	}

	got, err := s.ListByRegistration(ctx, regID)
	if err != nil {
		t.Fatalf("ListByRegistration: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("payments = %d, want 2", len(got))
	}

	got, err = s.ListByRegistration(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("ListByRegistration empty: %v", err)
	}
	if got != nil {
		t.Errorf("payments for unlinked registration = %v, want none", got)
	}
}
