// internal/app/roster/engine.go

// Package roster implements the versioned roster reconciliation engine: the
// shared compare-validate-apply pipeline used by families, tents, and service
// spaces. Each roster kind supplies a Resource with its own rule table and
// storage adapters; the engine owns the version gate, the warning policy, and
// the atomic commit with the compare-and-increment version bump.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/retreathub/retreathub/internal/app/metrics"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrRetreatNotFound is fatal: the referenced aggregate does not exist.
	ErrRetreatNotFound = errors.New("retreat not found")

	// ErrRosterLocked is fatal: the roster kind is administratively frozen.
	// This is an admin-state error, not a data conflict, so it is returned
	// as an error rather than in the soft issue channel.
	ErrRosterLocked = errors.New("roster locked")

	// ErrVersionConflict is returned by the gate's compare-and-increment
	// when a racing writer committed first. The engine converts it into a
	// soft VERSION_MISMATCH issue.
	ErrVersionConflict = errors.New("version conflict")
)

// Params carries the optimistic-concurrency inputs every roster-update
// command shares.
type Params struct {
	RetreatID      primitive.ObjectID
	Version        int64
	IgnoreWarnings bool
}

// Result is the outcome of one reconciliation attempt. When Errors or
// non-ignored Warnings are present, Groups is empty and nothing was
// persisted; otherwise Groups holds the freshly projected views and Version
// is the bumped counter.
type Result[V any] struct {
	Version  int64   `json:"version"`
	Groups   []V     `json:"groups"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`

	committed bool
}

// Committed reports whether the attempt mutated storage.
func (r *Result[V]) Committed() bool { return r.committed }

// Resource is the per-roster-kind capability set the engine is parameterized
// by. C is the kind's command (desired snapshot), S its loaded state, V its
// projected per-group view.
type Resource[C, S, V any] interface {
	// Kind names the roster domain this resource reconciles.
	Kind() models.RosterKind

	// Load reads the current groups, membership links, and referenced
	// participants the validator needs.
	Load(ctx context.Context, retreat *models.Retreat, cmd C) (S, error)

	// Validate evaluates the kind's rule table against the desired snapshot
	// and loaded state, returning blocking errors and advisory warnings.
	// It must not touch storage.
	Validate(retreat *models.Retreat, cmd C, st S) (errs, warns []Issue)

	// Apply replaces membership for every group in the snapshot whose
	// desired membership differs from current, and upserts group
	// attributes. It runs inside the commit transaction.
	Apply(ctx context.Context, retreat *models.Retreat, cmd C, st S) error

	// Project re-reads the kind's groups joined with participant summaries.
	// Pure read.
	Project(ctx context.Context, retreatID primitive.ObjectID) ([]V, error)
}

// Gate abstracts the retreat-aggregate operations the engine needs: loading
// the aggregate and the transactional compare-and-increment of its counter.
type Gate interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Retreat, error)
	// BumpVersion increments the kind's counter by one iff it still equals
	// from; otherwise it returns ErrVersionConflict.
	BumpVersion(ctx context.Context, id primitive.ObjectID, kind models.RosterKind, from int64) error
}

// Runner executes fn as one atomic unit. In production this is txn.Run over
// a mongo session.
type Runner func(ctx context.Context, fn func(ctx context.Context) error) error

// Engine is the generic reconciliation core.
type Engine[C, S, V any] struct {
	Retreats Gate
	Atomic   Runner
	Resource Resource[C, S, V]
	Log      *zap.Logger
}

// Reconcile runs the full pipeline: version gate, load, validate, warning
// policy, atomic apply+bump, projection.
//
// Fatal conditions (missing retreat, locked kind, storage failure) come back
// as errors. Everything the caller can correct and resubmit (stale version,
// rule violations) comes back inside the Result.
func (e *Engine[C, S, V]) Reconcile(ctx context.Context, p Params, cmd C) (*Result[V], error) {
	kind := e.Resource.Kind()

	retreat, err := e.Retreats.GetByID(ctx, p.RetreatID)
	if err != nil {
		return nil, err
	}
	if retreat.Locked(kind) {
		return nil, fmt.Errorf("%w: %s of retreat %s", ErrRosterLocked, kind, p.RetreatID.Hex())
	}
	if p.Version != retreat.Version(kind) {
		metrics.VersionConflicts.WithLabelValues(string(kind)).Inc()
		return &Result[V]{
			Version: retreat.Version(kind),
			Errors:  []Issue{VersionMismatch(retreat.Version(kind))},
		}, nil
	}

	st, err := e.Resource.Load(ctx, retreat, cmd)
	if err != nil {
		return nil, err
	}

	errs, warns := e.Resource.Validate(retreat, cmd, st)
	if len(errs) > 0 {
		metrics.ValidationRejections.WithLabelValues(string(kind), "error").Inc()
		return &Result[V]{Version: p.Version, Errors: errs, Warnings: warns}, nil
	}
	if len(warns) > 0 && !p.IgnoreWarnings {
		metrics.ValidationRejections.WithLabelValues(string(kind), "warning").Inc()
		return &Result[V]{Version: p.Version, Warnings: warns}, nil
	}

	err = e.Atomic(ctx, func(ctx context.Context) error {
		if err := e.Resource.Apply(ctx, retreat, cmd, st); err != nil {
			return err
		}
		return e.Retreats.BumpVersion(ctx, p.RetreatID, kind, p.Version)
	})
	if errors.Is(err, ErrVersionConflict) {
		// A racing writer won between our gate read and the commit. Report
		// it the same way as a stale submission.
		metrics.VersionConflicts.WithLabelValues(string(kind)).Inc()
		current, gerr := e.Retreats.GetByID(ctx, p.RetreatID)
		if gerr != nil {
			return nil, gerr
		}
		return &Result[V]{
			Version: current.Version(kind),
			Errors:  []Issue{VersionMismatch(current.Version(kind))},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster commit (%s): %w", kind, err)
	}

	views, err := e.Resource.Project(ctx, p.RetreatID)
	if err != nil {
		return nil, err
	}

	metrics.RosterCommits.WithLabelValues(string(kind)).Inc()
	if e.Log != nil {
		e.Log.Info("roster commit",
			zap.String("kind", string(kind)),
			zap.String("retreat_id", p.RetreatID.Hex()),
			zap.Int64("version", p.Version+1))
	}
	return &Result[V]{Version: p.Version + 1, Groups: views, Warnings: warns, committed: true}, nil
}
