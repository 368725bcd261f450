// internal/app/store/spaces/spacestore.go
package spacestore

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

// ErrNotFound is returned when a referenced service space does not exist.
var ErrNotFound = errors.New("service space not found")

type Store struct {
	spaces      *mongo.Collection
	assignments *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		spaces:      db.Collection("service_spaces"),
		assignments: db.Collection("service_assignments"),
	}
}

// GetByID loads one service space.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceSpace, error) {
	var sp models.ServiceSpace
	if err := s.spaces.FindOne(ctx, bson.M{"_id": id}).Decode(&sp); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

// ListByRetreat returns the retreat's service spaces sorted by name.
func (s *Store) ListByRetreat(ctx context.Context, retreatID primitive.ObjectID) ([]models.ServiceSpace, error) {
	cur, err := s.spaces.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.ServiceSpace
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAssignments returns all assignment rows of the retreat ordered by
// space and position.
func (s *Store) ListAssignments(ctx context.Context, retreatID primitive.ObjectID) ([]models.ServiceAssignment, error) {
	cur, err := s.assignments.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "space_id", Value: 1}, {Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.ServiceAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates a new service space document.
func (s *Store) Insert(ctx context.Context, sp models.ServiceSpace) error {
	sp.NameCI = text.Fold(sp.Name)
	now := time.Now()
	sp.CreatedAt = now
	sp.UpdatedAt = now
	_, err := s.spaces.InsertOne(ctx, sp)
	return err
}

// UpdateAttrs rewrites a space's mutable attributes.
func (s *Store) UpdateAttrs(ctx context.Context, id primitive.ObjectID, name string, minSize, maxSize int) error {
	res, err := s.spaces.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"min_size":   minSize,
		"max_size":   maxSize,
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

// ReplaceAssignments swaps a space's entire membership: delete the old rows,
// insert the new ordered, role-flagged set.
func (s *Store) ReplaceAssignments(ctx context.Context, spaceID primitive.ObjectID, assignments []models.ServiceAssignment) error {
	if _, err := s.assignments.DeleteMany(ctx, bson.M{"space_id": spaceID}); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(assignments))
	for _, a := range assignments {
		a.ID = primitive.NewObjectID()
		a.SpaceID = spaceID
		a.CreatedAt = now
		docs = append(docs, a)
	}
	_, err := s.assignments.InsertMany(ctx, docs)
	return err
}

// HasAssignment reports whether the service registration already holds a
// duty-space assignment anywhere in the retreat.
func (s *Store) HasAssignment(ctx context.Context, retreatID, registrationID primitive.ObjectID) (bool, error) {
	n, err := s.assignments.CountDocuments(ctx, bson.M{
		"retreat_id":      retreatID,
		"registration_id": registrationID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Occupancy returns the current number of assignments in a space.
func (s *Store) Occupancy(ctx context.Context, spaceID primitive.ObjectID) (int64, error) {
	return s.assignments.CountDocuments(ctx, bson.M{"space_id": spaceID})
}

// NextPosition returns one past the highest position currently used in a
// space (positions start at 1).
func (s *Store) NextPosition(ctx context.Context, spaceID primitive.ObjectID) (int, error) {
	var top models.ServiceAssignment
	err := s.assignments.FindOne(ctx, bson.M{"space_id": spaceID},
		options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})).Decode(&top)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return top.Position + 1, nil
}

// InsertAssignment appends a single assignment row. Used by the
// payment-confirmation auto-assignment, which never rewrites whole groups.
func (s *Store) InsertAssignment(ctx context.Context, a models.ServiceAssignment) error {
	a.ID = primitive.NewObjectID()
	a.CreatedAt = time.Now()
	_, err := s.assignments.InsertOne(ctx, a)
	return err
}

// Delete removes a space and all of its assignment rows.
func (s *Store) Delete(ctx context.Context, retreatID, spaceID primitive.ObjectID) error {
	if _, err := s.assignments.DeleteMany(ctx, bson.M{"space_id": spaceID}); err != nil {
		return err
	}
	res, err := s.spaces.DeleteOne(ctx, bson.M{"_id": spaceID, "retreat_id": retreatID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
