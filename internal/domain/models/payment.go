// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the settlement state of a payment record.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment is a payment fact reconciled from the gateway's confirmation
// events. ExternalID is the gateway-side identity and is unique, which is
// what makes replayed confirmations idempotent.
type Payment struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ExternalID string             `bson:"external_id" json:"external_id"`
	Amount     int64              `bson:"amount" json:"amount"` // minor units
	Currency   string             `bson:"currency" json:"currency"`
	Method     string             `bson:"method" json:"method"`
	Status     PaymentStatus      `bson:"status" json:"status"`
	PaidAt     *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RegistrationPayment links a service registration to a payment. Exactly one
// document per (registration_id, payment_id).
type RegistrationPayment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RegistrationID primitive.ObjectID `bson:"registration_id" json:"registration_id"`
	PaymentID      primitive.ObjectID `bson:"payment_id" json:"payment_id"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
