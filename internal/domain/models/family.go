// internal/domain/models/family.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FamilyRole is the role a registration holds inside a family.
//
// Modeled as a single closed enum rather than independent flags so that
// "godfather and godmother at the same time" is not representable.
type FamilyRole string

const (
	FamilyRoleMember    FamilyRole = "member"
	FamilyRoleGodfather FamilyRole = "godfather"
	FamilyRoleGodmother FamilyRole = "godmother"
)

// MaxGodparentsPerRole caps how many godfathers (and, separately, how many
// godmothers) a single family may have.
const MaxGodparentsPerRole = 2

// FamilyColors is the allowed color palette for families. Color doubles as a
// uniqueness key within a retreat.
var FamilyColors = []string{
	"Red", "Orange", "Yellow", "Green", "Blue", "Purple", "Pink", "Brown", "Gray", "White",
}

// ValidFamilyColor reports whether c is in the allowed palette.
func ValidFamilyColor(c string) bool {
	for _, known := range FamilyColors {
		if known == c {
			return true
		}
	}
	return false
}

// Family is a household group within a retreat. Name and color are each
// unique per retreat; capacity is a fixed member cap.
type Family struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	RetreatID primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"`
	Color     string             `bson:"color" json:"color"`
	Capacity  int                `bson:"capacity" json:"capacity"`
	Locked    bool               `bson:"locked" json:"locked"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FamilyMember is the authoritative join between registrations and families.
// Exactly one document per (retreat_id, registration_id); position is unique
// within a family.
type FamilyMember struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RetreatID      primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	FamilyID       primitive.ObjectID `bson:"family_id" json:"family_id"`
	RegistrationID primitive.ObjectID `bson:"registration_id" json:"registration_id"`
	Position       int                `bson:"position" json:"position"`
	Role           FamilyRole         `bson:"role" json:"role"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
