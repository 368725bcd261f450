// internal/app/store/tents/tentstore.go
package tentstore

import (
	"context"
	"errors"
	"time"

	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a referenced tent does not exist.
var ErrNotFound = errors.New("tent not found")

type Store struct {
	tents       *mongo.Collection
	assignments *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		tents:       db.Collection("tents"),
		assignments: db.Collection("tent_assignments"),
	}
}

// GetByID loads one tent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tent, error) {
	var t models.Tent
	if err := s.tents.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByRetreat returns the retreat's tents sorted by number.
func (s *Store) ListByRetreat(ctx context.Context, retreatID primitive.ObjectID) ([]models.Tent, error) {
	cur, err := s.tents.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Tent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAssignments returns all assignment rows of the retreat ordered by tent
// and position.
func (s *Store) ListAssignments(ctx context.Context, retreatID primitive.ObjectID) ([]models.TentAssignment, error) {
	cur, err := s.assignments.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "tent_id", Value: 1}, {Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.TentAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates a new tent document.
func (s *Store) Insert(ctx context.Context, t models.Tent) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.tents.InsertOne(ctx, t)
	return err
}

// UpdateAttrs rewrites a tent's mutable attributes.
func (s *Store) UpdateAttrs(ctx context.Context, id primitive.ObjectID, number int, category models.Gender, minSize, maxSize int) error {
	res, err := s.tents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"number":     number,
		"category":   category,
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

// ReplaceAssignments swaps a tent's entire occupancy: delete the old rows,
// insert the new ordered set.
func (s *Store) ReplaceAssignments(ctx context.Context, tentID primitive.ObjectID, assignments []models.TentAssignment) error {
	if _, err := s.assignments.DeleteMany(ctx, bson.M{"tent_id": tentID}); err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(assignments))
	for _, a := range assignments {
		a.ID = primitive.NewObjectID()
		a.TentID = tentID
		a.CreatedAt = now
		docs = append(docs, a)
	}
	_, err := s.assignments.InsertMany(ctx, docs)
	return err
}

// Delete removes a tent and all of its assignment rows.
func (s *Store) Delete(ctx context.Context, retreatID, tentID primitive.ObjectID) error {
	if _, err := s.assignments.DeleteMany(ctx, bson.M{"tent_id": tentID}); err != nil {
		return err
	}
	res, err := s.tents.DeleteOne(ctx, bson.M{"_id": tentID, "retreat_id": retreatID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
