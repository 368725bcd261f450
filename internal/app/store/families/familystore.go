// internal/app/store/families/familystore.go
package familystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a referenced family does not exist.
var ErrNotFound = errors.New("family not found")

type Store struct {
	families *mongo.Collection
	members  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		families: db.Collection("families"),
		members:  db.Collection("family_members"),
	}
}

// GetByID loads one family.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Family, error) {
	var f models.Family
	if err := s.families.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListByRetreat returns the retreat's families sorted by name.
func (s *Store) ListByRetreat(ctx context.Context, retreatID primitive.ObjectID) ([]models.Family, error) {
	cur, err := s.families.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Family
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMembers returns all membership rows of the retreat ordered by family
// and position.
func (s *Store) ListMembers(ctx context.Context, retreatID primitive.ObjectID) ([]models.FamilyMember, error) {
	cur, err := s.members.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "family_id", Value: 1}, {Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.FamilyMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates a new family document.
func (s *Store) Insert(ctx context.Context, f models.Family) error {
	f.NameCI = text.Fold(f.Name)
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	_, err := s.families.InsertOne(ctx, f)
	return err
}

// UpdateAttrs rewrites a family's mutable attributes (name, color, capacity).
func (s *Store) UpdateAttrs(ctx context.Context, id primitive.ObjectID, name, color string, capacity int) error {
	res, err := s.families.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"color":      color,
		"capacity":   capacity,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMembers swaps a family's entire membership: delete the old rows,
// insert the new ordered set. Full replace, not a patch.
func (s *Store) ReplaceMembers(ctx context.Context, familyID primitive.ObjectID, members []models.FamilyMember) error {
	if _, err := s.members.DeleteMany(ctx, bson.M{"family_id": familyID}); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(members))
	for _, m := range members {
		m.ID = primitive.NewObjectID()
		m.FamilyID = familyID
		m.CreatedAt = now
		docs = append(docs, m)
	}
	_, err := s.members.InsertMany(ctx, docs)
	return err
}

// UpdateRoles rewrites only the role field of existing membership rows.
// Registrations in roles get that role; every other member of the family is
// reset to plain member. Membership and positions are untouched.
func (s *Store) UpdateRoles(ctx context.Context, familyID primitive.ObjectID, roles map[primitive.ObjectID]models.FamilyRole) error {
	if _, err := s.members.UpdateMany(ctx,
		bson.M{"family_id": familyID},
		bson.M{"$set": bson.M{"role": models.FamilyRoleMember}},
	); err != nil {
		return err
	}
	for regID, role := range roles {
		if role == models.FamilyRoleMember {
			continue
		}
		if _, err := s.members.UpdateOne(ctx,
			bson.M{"family_id": familyID, "registration_id": regID},
			bson.M{"$set": bson.M{"role": role}},
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a family and all of its membership rows.
func (s *Store) Delete(ctx context.Context, retreatID, familyID primitive.ObjectID) error {
	if _, err := s.members.DeleteMany(ctx, bson.M{"family_id": familyID}); err != nil {
		return err
	}
	res, err := s.families.DeleteOne(ctx, bson.M{"_id": familyID, "retreat_id": retreatID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
