package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/retreathub/retreathub/internal/domain/models"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateRetreat creates an unlocked retreat with all version counters at
// zero.
func (f *Fixtures) CreateRetreat(ctx context.Context, name string, year int) models.Retreat {
	f.t.Helper()

	now := time.Now().UTC()
	retreat := models.Retreat{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Year:      year,
		StartsAt:  time.Date(year, 7, 10, 0, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(year, 7, 13, 0, 0, 0, 0, time.UTC),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "retreats", retreat)
	return retreat
}

// CreateCamper creates an enabled camper registration in confirmed status,
// ready for roster membership.
func (f *Fixtures) CreateCamper(ctx context.Context, retreatID primitive.ObjectID, fullName string, gender models.Gender, city string) models.Registration {
	f.t.Helper()

	now := time.Now().UTC()
	reg := models.Registration{
		ID:         primitive.NewObjectID(),
		RetreatID:  retreatID,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      text.Fold(fullName) + "@test.com",
		Gender:     gender,
		City:       city,
		CityCI:     text.Fold(city),
		Enabled:    true,
		Status:     models.StatusConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "registrations", reg)
	return reg
}

// CreateServiceRegistration creates an enabled volunteer registration in
// confirmed status.
func (f *Fixtures) CreateServiceRegistration(ctx context.Context, retreatID primitive.ObjectID, fullName string, gender models.Gender, preferredSpace *primitive.ObjectID) models.ServiceRegistration {
	f.t.Helper()

	now := time.Now().UTC()
	reg := models.ServiceRegistration{
		ID:               primitive.NewObjectID(),
		RetreatID:        retreatID,
		FullName:         fullName,
		FullNameCI:       text.Fold(fullName),
		Email:            text.Fold(fullName) + "@test.com",
		Gender:           gender,
		City:             "Campinas",
		CityCI:           text.Fold("Campinas"),
		PreferredSpaceID: preferredSpace,
		Enabled:          true,
		Status:           models.StatusConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "service_registrations", reg)
	return reg
}

// CreateFamily creates an unlocked family.
func (f *Fixtures) CreateFamily(ctx context.Context, retreatID primitive.ObjectID, name, color string, capacity int) models.Family {
	f.t.Helper()

	now := time.Now().UTC()
	fam := models.Family{
		ID:        primitive.NewObjectID(),
		RetreatID: retreatID,
		Name:      name,
		NameCI:    text.Fold(name),
		Color:     color,
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "families", fam)
	return fam
}

// AddFamilyMember joins a registration to a family at the given position.
func (f *Fixtures) AddFamilyMember(ctx context.Context, fam models.Family, regID primitive.ObjectID, position int, role models.FamilyRole) models.FamilyMember {
	f.t.Helper()

	m := models.FamilyMember{
		ID:             primitive.NewObjectID(),
		RetreatID:      fam.RetreatID,
		FamilyID:       fam.ID,
		RegistrationID: regID,
		Position:       position,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	f.insert(ctx, "family_members", m)
	return m
}

// CreateTent creates an unlocked tent.
func (f *Fixtures) CreateTent(ctx context.Context, retreatID primitive.ObjectID, number int, category models.Gender, minSize, maxSize int) models.Tent {
	f.t.Helper()

	now := time.Now().UTC()
	tent := models.Tent{
		ID:        primitive.NewObjectID(),
		RetreatID: retreatID,
		Number:    number,
		Category:  category,
		MinSize:   minSize,
		MaxSize:   maxSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "tents", tent)
	return tent
}

// AddTentAssignment joins a registration to a tent at the given position.
func (f *Fixtures) AddTentAssignment(ctx context.Context, tent models.Tent, regID primitive.ObjectID, position int) models.TentAssignment {
	f.t.Helper()

	a := models.TentAssignment{
		ID:             primitive.NewObjectID(),
		RetreatID:      tent.RetreatID,
		TentID:         tent.ID,
		RegistrationID: regID,
		Position:       position,
		CreatedAt:      time.Now().UTC(),
	}
	f.insert(ctx, "tent_assignments", a)
	return a
}

// CreateSpace creates an unlocked service space.
func (f *Fixtures) CreateSpace(ctx context.Context, retreatID primitive.ObjectID, name string, minSize, maxSize int) models.ServiceSpace {
	f.t.Helper()

	now := time.Now().UTC()
	space := models.ServiceSpace{
		ID:        primitive.NewObjectID(),
		RetreatID: retreatID,
		Name:      name,
		NameCI:    text.Fold(name),
		MinSize:   minSize,
		MaxSize:   maxSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "service_spaces", space)
	return space
}

// AddServiceAssignment joins a volunteer to a space at the given position.
func (f *Fixtures) AddServiceAssignment(ctx context.Context, space models.ServiceSpace, regID primitive.ObjectID, position int, role models.ServiceRole) models.ServiceAssignment {
	f.t.Helper()

	a := models.ServiceAssignment{
		ID:             primitive.NewObjectID(),
		RetreatID:      space.RetreatID,
		SpaceID:        space.ID,
		RegistrationID: regID,
		Position:       position,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	f.insert(ctx, "service_assignments", a)
	return a
}

// SetRosterVersion force-sets one roster counter on a retreat, for tests
// that need a known baseline.
func (f *Fixtures) SetRosterVersion(ctx context.Context, retreatID primitive.ObjectID, kind models.RosterKind, v int64) {
	f.t.Helper()

	_, err := f.db.Collection("retreats").UpdateByID(ctx, retreatID,
		map[string]any{"$set": map[string]any{models.VersionField(kind): v}})
	if err != nil {
		f.t.Fatalf("set %s version: %v", kind, err)
	}
}

// LockRoster flips one roster lock flag on a retreat.
func (f *Fixtures) LockRoster(ctx context.Context, retreatID primitive.ObjectID, kind models.RosterKind, locked bool) {
	f.t.Helper()

	_, err := f.db.Collection("retreats").UpdateByID(ctx, retreatID,
		map[string]any{"$set": map[string]any{models.LockField(kind): locked}})
	if err != nil {
		f.t.Fatalf("lock %s roster: %v", kind, err)
	}
}
