// internal/domain/models/tent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tent is a sleeping unit within a retreat. Number is unique per retreat and
// category restricts occupants to one gender.
type Tent struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	RetreatID primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	Number    int                `bson:"number" json:"number"`
	Category  Gender             `bson:"category" json:"category"`
	MinSize   int                `bson:"min_size" json:"min_size"`
	MaxSize   int                `bson:"max_size" json:"max_size"`
	Locked    bool               `bson:"locked" json:"locked"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TentAssignment joins one registration to one tent. Exactly one document per
// (retreat_id, registration_id); position is unique within a tent.
type TentAssignment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RetreatID      primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	TentID         primitive.ObjectID `bson:"tent_id" json:"tent_id"`
	RegistrationID primitive.ObjectID `bson:"registration_id" json:"registration_id"`
	Position       int                `bson:"position" json:"position"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
