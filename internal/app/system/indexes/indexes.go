// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureRetreats(ctx, db); err != nil {
		problems = append(problems, "retreats: "+err.Error())
	}
	if err := ensureRegistrations(ctx, db); err != nil {
		problems = append(problems, "registrations: "+err.Error())
	}
	if err := ensureServiceRegistrations(ctx, db); err != nil {
		problems = append(problems, "service_registrations: "+err.Error())
	}
	if err := ensureFamilies(ctx, db); err != nil {
		problems = append(problems, "families: "+err.Error())
	}
	if err := ensureFamilyMembers(ctx, db); err != nil {
		problems = append(problems, "family_members: "+err.Error())
	}
	if err := ensureTents(ctx, db); err != nil {
		problems = append(problems, "tents: "+err.Error())
	}
	if err := ensureTentAssignments(ctx, db); err != nil {
		problems = append(problems, "tent_assignments: "+err.Error())
	}
	if err := ensureServiceSpaces(ctx, db); err != nil {
		problems = append(problems, "service_spaces: "+err.Error())
	}
	if err := ensureServiceAssignments(ctx, db); err != nil {
		problems = append(problems, "service_assignments: "+err.Error())
	}
	if err := ensurePayments(ctx, db); err != nil {
		problems = append(problems, "payments: "+err.Error())
	}
	if err := ensureRegistrationPayments(ctx, db); err != nil {
		problems = append(problems, "registration_payments: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// --- Name alignment: if the name differs, drop & recreate with the desired name.
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						zap.L().Warn("drop existing index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", ex.Name),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						zap.L().Warn("create index (rename) failed",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.Error(err))
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("keys", desiredSig),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Bool("unique", ex.Unique != nil && *ex.Unique),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				cur2, e2 := coll.Indexes().List(ctx)
				if e2 == nil {
					var match *existingIndex
					for cur2.Next(ctx) {
						var idx existingIndex
						if err := cur2.Decode(&idx); err != nil {
							zap.L().Warn("failed to decode existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.Error(err))
							continue
						}
						if keySig(idx.Key) == desiredSig {
							match = &idx
							break
						}
					}
					cur2.Close(ctx)
					if match != nil {
						if sameBoolPtr(desiredUnique, match.Unique) {
							zap.L().Info("reusing existing index (post-conflict)",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.String("keys", desiredSig),
								zap.Bool("unique", match.Unique != nil && *match.Unique),
								zap.String("took", time.Since(start).String()))
							continue
						}
						if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
							zap.L().Warn("failed to drop conflicting index",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.Error(dropErr))
						}
						if _, e3 := coll.Indexes().CreateOne(ctx, m); e3 != nil {
							if isDuplicateKeyErr(e3) && desiredUnique != nil && *desiredUnique {
								errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
							} else {
								errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e3))
							}
							continue
						}
						zap.L().Info("index dropped and recreated (post-conflict)",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.String("keys", desiredSig),
							zap.Bool("unique", desiredUnique != nil && *desiredUnique),
							zap.String("took", time.Since(start).String()))
						continue
					}
				}

				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Bool("unique", desiredUnique != nil && *desiredUnique),
					zap.String("took", time.Since(start).String()),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.Bool("unique", desiredUnique != nil && *desiredUnique),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureRetreats(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("retreats")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// List pages sort by start date, newest first
		{
			Keys:    bson.D{{Key: "starts_at", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_retreats_startsat__id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_retreats_nameci"),
		},
	})
}

func ensureRegistrations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("registrations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Roster listing: per-retreat, sorted by folded name, stable tiebreak
		{
			Keys: bson.D{
				{Key: "retreat_id", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_regs_retreat_nameci__id"),
		},
		// Status filters (eligibility sweeps)
		{
			Keys: bson.D{
				{Key: "retreat_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_regs_retreat_status"),
		},
	})
}

func ensureServiceRegistrations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("service_registrations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "retreat_id", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_sregs_retreat_nameci__id"),
		},
		{
			Keys: bson.D{
				{Key: "retreat_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_sregs_retreat_status"),
		},
	})
}

func ensureFamilies(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("families")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// No duplicate family names inside a retreat (case/diacritics-folded via name_ci)
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_families_retreat_nameci"),
		},
		// One family per color per retreat
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "color", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_families_retreat_color"),
		},
	})
}

func ensureFamilyMembers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("family_members")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// A participant sits in at most one family per retreat
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "registration_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_fm_retreat_registration"),
		},
		// Ordered member listing per family
		{
			Keys:    bson.D{{Key: "family_id", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetName("idx_fm_family_position"),
		},
	})
}

func ensureTents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tents")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tents_retreat_number"),
		},
	})
}

func ensureTentAssignments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tent_assignments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "registration_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_ta_retreat_registration"),
		},
		{
			Keys:    bson.D{{Key: "tent_id", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetName("idx_ta_tent_position"),
		},
	})
}

func ensureServiceSpaces(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("service_spaces")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_spaces_retreat_nameci"),
		},
	})
}

func ensureServiceAssignments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("service_assignments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "retreat_id", Value: 1}, {Key: "registration_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_sa_retreat_registration"),
		},
		{
			Keys:    bson.D{{Key: "space_id", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetName("idx_sa_space_position"),
		},
		// Leadership lookups per space
		{
			Keys:    bson.D{{Key: "space_id", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_sa_space_role"),
		},
	})
}

func ensurePayments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("payments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Gateway events replay; external id is the dedupe key
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_payments_externalid"),
		},
	})
}

func ensureRegistrationPayments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("registration_payments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One link per (registration, payment); inserts race with replays
		{
			Keys:    bson.D{{Key: "registration_id", Value: 1}, {Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_rp_registration_payment"),
		},
		{
			Keys:    bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetName("idx_rp_payment"),
		},
	})
}
