// internal/app/store/payments/paymentstore.go
package paymentstore

import (
	"context"
	"time"

	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	payments *mongo.Collection
	links    *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		payments: db.Collection("payments"),
		links:    db.Collection("registration_payments"),
	}
}

// EnsurePaid records that the payment identified by externalID is settled.
// Missing: insert a paid record. Present but pending: mark paid. Already
// paid: no-op. This makes redelivered confirmation events harmless.
func (s *Store) EnsurePaid(ctx context.Context, externalID string, amount int64, currency, method string, paidAt time.Time) (models.Payment, error) {
	var p models.Payment
	err := s.payments.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		now := time.Now()
		p = models.Payment{
			ID:         primitive.NewObjectID(),
			ExternalID: externalID,
			Amount:     amount,
			Currency:   currency,
			Method:     method,
			Status:     models.PaymentPaid,
			PaidAt:     &paidAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := s.payments.InsertOne(ctx, p); err != nil {
			return models.Payment{}, err
		}
		return p, nil
	}
	if err != nil {
		return models.Payment{}, err
	}
	if p.Status == models.PaymentPaid {
		return p, nil
	}
	p.Status = models.PaymentPaid
	p.PaidAt = &paidAt
	p.UpdatedAt = time.Now()
	if _, err := s.payments.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{
		"$set": bson.M{"status": p.Status, "paid_at": p.PaidAt, "updated_at": p.UpdatedAt},
	}); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// Link records the registration↔payment association. Returns false when the
// link already exists.
func (s *Store) Link(ctx context.Context, registrationID, paymentID primitive.ObjectID) (bool, error) {
	n, err := s.links.CountDocuments(ctx, bson.M{
		"registration_id": registrationID,
		"payment_id":      paymentID,
	})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.links.InsertOne(ctx, models.RegistrationPayment{
		RegistrationID: registrationID,
		PaymentID:      paymentID,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByRegistration returns the payments linked to one registration.
func (s *Store) ListByRegistration(ctx context.Context, registrationID primitive.ObjectID) ([]models.Payment, error) {
	cur, err := s.links.Find(ctx, bson.M{"registration_id": registrationID})
	if err != nil {
		return nil, err
	}
	var links []models.RegistrationPayment
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.PaymentID)
	}
	pcur, err := s.payments.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var out []models.Payment
	if err := pcur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
