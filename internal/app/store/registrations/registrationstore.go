// internal/app/store/registrations/registrationstore.go
package registrationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/app/system/normalize"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a referenced registration does not exist.
var ErrNotFound = errors.New("registration not found")

// ErrBadTransition is returned when a status change is not allowed from the
// registration's current status.
var ErrBadTransition = errors.New("status transition not allowed")

// Store covers both participant collections: campers ("registrations") and
// volunteers ("service_registrations"). They share their document shape
// except for the volunteer's preferred space.
type Store struct {
	campers *mongo.Collection
	service *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		campers: db.Collection("registrations"),
		service: db.Collection("service_registrations"),
	}
}

func normalizeBase(fullName, email, city string) (name, nameCI, mail, cityTrim, cityCI string) {
	name = normalize.Name(fullName)
	nameCI = text.Fold(name)
	mail = normalize.Email(email)
	cityTrim = normalize.Name(city)
	cityCI = text.Fold(cityTrim)
	return
}

/* ------------------------------- campers -------------------------------- */

// CreateCamper inserts a camper registration in pending status.
func (s *Store) CreateCamper(ctx context.Context, r models.Registration) (models.Registration, error) {
	r.ID = primitive.NewObjectID()
	r.FullName, r.FullNameCI, r.Email, r.City, r.CityCI = normalizeBase(r.FullName, r.Email, r.City)
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.campers.InsertOne(ctx, r); err != nil {
		return models.Registration{}, err
	}
	return r, nil
}

// GetCamperByID loads one camper registration.
func (s *Store) GetCamperByID(ctx context.Context, id primitive.ObjectID) (*models.Registration, error) {
	var r models.Registration
	if err := s.campers.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListCampers returns the retreat's camper registrations sorted by name.
func (s *Store) ListCampers(ctx context.Context, retreatID primitive.ObjectID) ([]models.Registration, error) {
	cur, err := s.campers.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Registration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapCampersByIDs bulk-loads campers by id, keyed by id. Missing ids are
// simply absent from the map; the roster validator reports them.
func (s *Store) MapCampersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Registration, error) {
	out := make(map[primitive.ObjectID]models.Registration, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.campers.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var rows []models.Registration
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// SetCamperStatus sets a camper's status unconditionally (admin path).
func (s *Store) SetCamperStatus(ctx context.Context, id primitive.ObjectID, status models.RegistrationStatus) error {
	res, err := s.campers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* ------------------------------ volunteers ------------------------------- */

// CreateService inserts a volunteer registration in pending status.
func (s *Store) CreateService(ctx context.Context, r models.ServiceRegistration) (models.ServiceRegistration, error) {
	r.ID = primitive.NewObjectID()
	r.FullName, r.FullNameCI, r.Email, r.City, r.CityCI = normalizeBase(r.FullName, r.Email, r.City)
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.service.InsertOne(ctx, r); err != nil {
		return models.ServiceRegistration{}, err
	}
	return r, nil
}

// GetServiceByID loads one volunteer registration.
func (s *Store) GetServiceByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRegistration, error) {
	var r models.ServiceRegistration
	if err := s.service.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListService returns the retreat's volunteer registrations sorted by name.
func (s *Store) ListService(ctx context.Context, retreatID primitive.ObjectID) ([]models.ServiceRegistration, error) {
	cur, err := s.service.Find(ctx, bson.M{"retreat_id": retreatID},
		options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.ServiceRegistration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapServiceByIDs bulk-loads volunteers by id, keyed by id.
func (s *Store) MapServiceByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.ServiceRegistration, error) {
	out := make(map[primitive.ObjectID]models.ServiceRegistration, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.service.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var rows []models.ServiceRegistration
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// SetServiceStatus sets a volunteer's status unconditionally (admin path).
func (s *Store) SetServiceStatus(ctx context.Context, id primitive.ObjectID, status models.RegistrationStatus) error {
	res, err := s.service.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmServicePayment promotes a volunteer to payment_confirmed unless the
// registration is already there or in a terminal status. Terminal statuses
// are reported as ErrBadTransition so the payment bridge can log and move on
// without failing the payment fact.
func (s *Store) ConfirmServicePayment(ctx context.Context, id primitive.ObjectID) error {
	reg, err := s.GetServiceByID(ctx, id)
	if err != nil {
		return err
	}
	if reg.Status == models.StatusPaymentConfirmed {
		return nil
	}
	if reg.Status.Terminal() {
		return ErrBadTransition
	}
	_, err = s.service.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": models.StatusPaymentConfirmed, "updated_at": time.Now()},
	})
	return err
}
