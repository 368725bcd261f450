// internal/app/roster/families/command.go

// Package families reconciles the family roster: household groups with a
// fixed capacity, a color/name uniqueness key, and gender-constrained
// godparent roles. It plugs the family rule table and storage adapters into
// the generic roster engine.
package families

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is one family's desired state inside a roster-update command.
// A nil ID means "create a new family". Members is the full ordered desired
// membership; godfather/godmother nominations must reference members.
type Snapshot struct {
	ID         *primitive.ObjectID
	Name       string
	Color      string
	Capacity   int
	Members    []primitive.ObjectID
	Godfathers []primitive.ObjectID
	Godmothers []primitive.ObjectID
}

// Command is the desired membership snapshot for a set of families. Families
// of the retreat absent from the command are left untouched.
type Command struct {
	Snapshots []Snapshot
}

// GodparentsCommand is the narrow role-only command: it rewrites godparent
// roles on one family's existing membership rows without touching who is a
// member or their ordering.
type GodparentsCommand struct {
	FamilyID   primitive.ObjectID
	Godfathers []primitive.ObjectID
	Godmothers []primitive.ObjectID
}
