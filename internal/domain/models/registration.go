// internal/domain/models/registration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender of a participant. Tents match occupants against their category using
// this value, and godparent roles are gender-constrained.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ValidGender reports whether s is a known gender value.
func ValidGender(s string) bool {
	return Gender(s) == GenderMale || Gender(s) == GenderFemale
}

// RegistrationStatus is the lifecycle state of a participant registration.
type RegistrationStatus string

const (
	StatusPending          RegistrationStatus = "pending"
	StatusConfirmed        RegistrationStatus = "confirmed"
	StatusPaymentConfirmed RegistrationStatus = "payment_confirmed"
	StatusDeclined         RegistrationStatus = "declined"
	StatusCancelled        RegistrationStatus = "cancelled"
)

// ValidStatus reports whether s is a known registration status.
func ValidStatus(s string) bool {
	switch RegistrationStatus(s) {
	case StatusPending, StatusConfirmed, StatusPaymentConfirmed, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status is a dead end: a terminal registration
// is never promoted by payment confirmation.
func (s RegistrationStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusCancelled
}

// Eligible reports whether the status permits group membership.
func (s RegistrationStatus) Eligible() bool {
	return s == StatusConfirmed || s == StatusPaymentConfirmed
}

// Registration is a camper participant of a retreat. Campers are assigned
// into families and tents.
type Registration struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	RetreatID primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`

	FullName   string `bson:"full_name" json:"full_name"`
	FullNameCI string `bson:"full_name_ci" json:"full_name_ci"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone" json:"phone"`
	Gender     Gender `bson:"gender" json:"gender"`
	City       string `bson:"city" json:"city"`
	CityCI     string `bson:"city_ci" json:"city_ci"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty"`

	Enabled bool               `bson:"enabled" json:"enabled"`
	Status  RegistrationStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RosterEligible reports whether the camper may appear in family or tent
// membership.
func (r *Registration) RosterEligible() bool {
	return r.Enabled && r.Status.Eligible()
}

// ServiceRegistration is a volunteer participant of a retreat. Volunteers are
// assigned into service spaces, optionally declaring a preferred space used
// by the payment-confirmation auto-assignment.
type ServiceRegistration struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	RetreatID primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`

	FullName   string `bson:"full_name" json:"full_name"`
	FullNameCI string `bson:"full_name_ci" json:"full_name_ci"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone" json:"phone"`
	Gender     Gender `bson:"gender" json:"gender"`
	City       string `bson:"city" json:"city"`
	CityCI     string `bson:"city_ci" json:"city_ci"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty"`

	PreferredSpaceID *primitive.ObjectID `bson:"preferred_space_id,omitempty" json:"preferred_space_id,omitempty"`

	Enabled bool               `bson:"enabled" json:"enabled"`
	Status  RegistrationStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RosterEligible reports whether the volunteer may appear in service space
// membership.
func (r *ServiceRegistration) RosterEligible() bool {
	return r.Enabled && r.Status.Eligible()
}
