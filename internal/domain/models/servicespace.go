// internal/domain/models/servicespace.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceRole is the role a service registration holds inside a service
// space. A space has at most one coordinator and at most one vice.
type ServiceRole string

const (
	ServiceRoleCoordinator ServiceRole = "coordinator"
	ServiceRoleVice        ServiceRole = "vice"
	ServiceRoleMember      ServiceRole = "member"
)

// ServiceSpace is a volunteer duty area within a retreat. Name is unique per
// retreat; occupancy is bounded by [min_size, max_size].
type ServiceSpace struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	RetreatID primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"`
	MinSize   int                `bson:"min_size" json:"min_size"`
	MaxSize   int                `bson:"max_size" json:"max_size"`
	Locked    bool               `bson:"locked" json:"locked"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ServiceAssignment joins one service registration to one space. Exactly one
// document per (retreat_id, registration_id); position is unique within a
// space.
type ServiceAssignment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RetreatID      primitive.ObjectID `bson:"retreat_id" json:"retreat_id"`
	SpaceID        primitive.ObjectID `bson:"space_id" json:"space_id"`
	RegistrationID primitive.ObjectID `bson:"registration_id" json:"registration_id"`
	Position       int                `bson:"position" json:"position"`
	Role           ServiceRole        `bson:"role" json:"role"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
