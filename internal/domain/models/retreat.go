// internal/domain/models/retreat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterKind identifies one of the three grouping domains of a retreat.
type RosterKind string

const (
	RosterFamilies RosterKind = "families"
	RosterTents    RosterKind = "tents"
	RosterSpaces   RosterKind = "spaces"
)

// Retreat is the aggregate root for roster versioning.
//
// NOTE:
//   - Each roster kind carries its own monotonic version counter and a
//     global lock flag. The counters start at zero and are only ever
//     incremented by a successful roster commit; they never reset.
//   - A locked kind rejects all interactive mutation for that kind.
type Retreat struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`
	Year   int                `bson:"year" json:"year"`

	StartsAt time.Time `bson:"starts_at" json:"starts_at"`
	EndsAt   time.Time `bson:"ends_at" json:"ends_at"`

	FamiliesVersion int64 `bson:"families_version" json:"families_version"`
	TentsVersion    int64 `bson:"tents_version" json:"tents_version"`
	SpacesVersion   int64 `bson:"spaces_version" json:"spaces_version"`

	FamiliesLocked bool `bson:"families_locked" json:"families_locked"`
	TentsLocked    bool `bson:"tents_locked" json:"tents_locked"`
	SpacesLocked   bool `bson:"spaces_locked" json:"spaces_locked"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Version returns the stored counter for the given roster kind.
func (r *Retreat) Version(kind RosterKind) int64 {
	switch kind {
	case RosterFamilies:
		return r.FamiliesVersion
	case RosterTents:
		return r.TentsVersion
	case RosterSpaces:
		return r.SpacesVersion
	}
	return 0
}

// Locked reports whether the given roster kind is administratively frozen.
func (r *Retreat) Locked(kind RosterKind) bool {
	switch kind {
	case RosterFamilies:
		return r.FamiliesLocked
	case RosterTents:
		return r.TentsLocked
	case RosterSpaces:
		return r.SpacesLocked
	}
	return false
}

// VersionField returns the bson field name holding the counter for a kind.
// Used by the retreat store to build compare-and-increment updates.
func VersionField(kind RosterKind) string {
	switch kind {
	case RosterFamilies:
		return "families_version"
	case RosterTents:
		return "tents_version"
	case RosterSpaces:
		return "spaces_version"
	}
	return ""
}

// LockField returns the bson field name holding the lock flag for a kind.
func LockField(kind RosterKind) string {
	switch kind {
	case RosterFamilies:
		return "families_locked"
	case RosterTents:
		return "tents_locked"
	case RosterSpaces:
		return "spaces_locked"
	}
	return ""
}

// ValidRosterKind reports whether s names one of the three roster kinds.
func ValidRosterKind(s string) bool {
	switch RosterKind(s) {
	case RosterFamilies, RosterTents, RosterSpaces:
		return true
	}
	return false
}
