// internal/app/store/retreats/retreatstore.go
package retreatstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("retreats")}
}

// Create inserts a new retreat with all version counters at zero and all
// roster kinds unlocked.
func (s *Store) Create(ctx context.Context, r models.Retreat) (models.Retreat, error) {
	r.ID = primitive.NewObjectID()
	r.NameCI = text.Fold(r.Name)
	r.FamiliesVersion = 0
	r.TentsVersion = 0
	r.SpacesVersion = 0
	r.FamiliesLocked = false
	r.TentsLocked = false
	r.SpacesLocked = false

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Retreat{}, err
	}
	return r, nil
}

// GetByID loads a retreat. A missing document is reported as the fatal
// roster.ErrRetreatNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Retreat, error) {
	var r models.Retreat
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: %s", roster.ErrRetreatNotFound, id.Hex())
		}
		return nil, err
	}
	return &r, nil
}

// List returns all retreats, newest first.
func (s *Store) List(ctx context.Context) ([]models.Retreat, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Retreat
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetLock flips the global lock flag for one roster kind.
func (s *Store) SetLock(ctx context.Context, id primitive.ObjectID, kind models.RosterKind, locked bool) error {
	field := models.LockField(kind)
	if field == "" {
		return fmt.Errorf("unknown roster kind %q", kind)
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{field: locked, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", roster.ErrRetreatNotFound, id.Hex())
	}
	return nil
}

// BumpVersion performs the compare-and-increment at the heart of optimistic
// concurrency: the kind's counter advances by exactly one iff it still equals
// from. A racing writer that committed first makes the filter miss, which is
// reported as roster.ErrVersionConflict so the engine can surface a
// VERSION_MISMATCH to the caller.
func (s *Store) BumpVersion(ctx context.Context, id primitive.ObjectID, kind models.RosterKind, from int64) error {
	field := models.VersionField(kind)
	if field == "" {
		return fmt.Errorf("unknown roster kind %q", kind)
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, field: from},
		bson.M{"$inc": bson.M{field: 1}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s %s at %d", roster.ErrVersionConflict, id.Hex(), kind, from)
	}
	return nil
}

// ForceBumpVersion increments the kind's counter unconditionally. Used by the
// payment-confirmation bridge, which holds no client version to compare.
func (s *Store) ForceBumpVersion(ctx context.Context, id primitive.ObjectID, kind models.RosterKind) error {
	field := models.VersionField(kind)
	if field == "" {
		return fmt.Errorf("unknown roster kind %q", kind)
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{field: 1}, "$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", roster.ErrRetreatNotFound, id.Hex())
	}
	return nil
}
