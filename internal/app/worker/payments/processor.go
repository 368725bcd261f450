// internal/app/worker/payments/processor.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retreathub/retreathub/internal/app/metrics"
	"github.com/retreathub/retreathub/internal/app/roster"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrPermanent marks event failures that redelivery cannot fix. The consumer
// acks and drops these instead of requeueing.
var ErrPermanent = errors.New("permanent payment event failure")

// RegistrationStore is the slice of the registration store the processor
// needs.
type RegistrationStore interface {
	GetServiceByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRegistration, error)
	ConfirmServicePayment(ctx context.Context, id primitive.ObjectID) error
}

// PaymentStore records payment facts and registration links.
type PaymentStore interface {
	EnsurePaid(ctx context.Context, externalID string, amount int64, currency, method string, paidAt time.Time) (models.Payment, error)
	Link(ctx context.Context, registrationID, paymentID primitive.ObjectID) (bool, error)
}

// SpaceStore is the slice of the space store the auto-assignment needs.
type SpaceStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceSpace, error)
	HasAssignment(ctx context.Context, retreatID, registrationID primitive.ObjectID) (bool, error)
	Occupancy(ctx context.Context, spaceID primitive.ObjectID) (int64, error)
	NextPosition(ctx context.Context, spaceID primitive.ObjectID) (int, error)
	InsertAssignment(ctx context.Context, a models.ServiceAssignment) error
}

// RetreatStore bumps the spaces counter when auto-assignment mutates the
// roster. The bridge holds no client version, so the bump is unconditional.
type RetreatStore interface {
	ForceBumpVersion(ctx context.Context, id primitive.ObjectID, kind models.RosterKind) error
}

// Processor folds one payment-confirmation event into registration state.
type Processor struct {
	Registrations RegistrationStore
	Payments      PaymentStore
	Spaces        SpaceStore
	Retreats      RetreatStore

	// Atomic runs the whole event as one unit; in production txn.Run.
	Atomic roster.Runner

	// AutoAssign enables the preferred-space assignment step.
	AutoAssign bool
	// EnforceCapacity makes the auto-assignment respect max_size.
	EnforceCapacity bool

	Log *zap.Logger
}

// Process applies every step of the bridge. Safe under replay: the payment
// upsert, the link, the status promotion, and the assignment are all
// individually idempotent. A nil return means the event is settled (acked);
// ErrPermanent means drop; anything else means requeue.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	regID, err := primitive.ObjectIDFromHex(ev.ParticipantID)
	if err != nil {
		return fmt.Errorf("%w: bad participant id %q", ErrPermanent, ev.ParticipantID)
	}

	// Outcome of the auto-assignment step, recorded only after the
	// transaction commits: the driver may retry the callback on transient
	// errors and counting inside it would double-report.
	var assigned assignment

	err = p.Atomic(ctx, func(ctx context.Context) error {
		assigned = assignment{}

		reg, err := p.Registrations.GetServiceByID(ctx, regID)
		if errors.Is(err, registrationstore.ErrNotFound) {
			// Unknown participant: the event is for someone we never saw.
			// Settle it; redelivery cannot invent the registration.
			p.Log.Warn("payment event for unknown registration",
				zap.String("participant_id", ev.ParticipantID),
				zap.String("payment_id", ev.PaymentID))
			return nil
		}
		if err != nil {
			return err
		}

		payment, err := p.Payments.EnsurePaid(ctx, ev.PaymentID, ev.Amount, ev.Currency, ev.Method, ev.PaidAt)
		if err != nil {
			return err
		}
		if _, err := p.Payments.Link(ctx, regID, payment.ID); err != nil {
			return err
		}

		if err := p.Registrations.ConfirmServicePayment(ctx, regID); err != nil {
			// A terminal registration keeps its status. The payment fact is
			// already recorded, so log and continue.
			if errors.Is(err, registrationstore.ErrBadTransition) {
				p.Log.Warn("payment confirmed for terminal registration",
					zap.String("registration_id", regID.Hex()),
					zap.String("status", string(reg.Status)))
			} else {
				return err
			}
		}

		if p.AutoAssign {
			assigned = p.autoAssign(ctx, reg)
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch assigned.outcome {
	case metrics.OutcomeAssigned:
		metrics.AutoAssignments.WithLabelValues(metrics.OutcomeAssigned).Inc()
		p.Log.Info("volunteer auto-assigned",
			zap.String("registration_id", regID.Hex()),
			zap.String("space_id", assigned.spaceID.Hex()),
			zap.String("space", assigned.space),
			zap.Int("position", assigned.position))
	case metrics.OutcomeSkipped:
		metrics.AutoAssignments.WithLabelValues(metrics.OutcomeSkipped).Inc()
		p.Log.Info("auto-assignment skipped",
			zap.String("registration_id", regID.Hex()),
			zap.String("reason", assigned.reason))
	}
	return nil
}

// assignment is the auto-assignment step's outcome, carried out of the
// transaction callback so it is reported once per committed event.
type assignment struct {
	outcome  string
	reason   string
	spaceID  primitive.ObjectID
	space    string
	position int
}

// autoAssign places a freshly confirmed volunteer into their preferred space
// when one is declared and the space can take them. Assignment is best-effort:
// a skip is reported but never fails the payment fact.
func (p *Processor) autoAssign(ctx context.Context, reg *models.ServiceRegistration) assignment {
	skip := func(reason string) assignment {
		return assignment{outcome: metrics.OutcomeSkipped, reason: reason}
	}

	if reg.PreferredSpaceID == nil {
		return skip("no preferred space")
	}

	taken, err := p.Spaces.HasAssignment(ctx, reg.RetreatID, reg.ID)
	if err != nil {
		return skip("assignment lookup failed: " + err.Error())
	}
	if taken {
		return skip("already assigned")
	}

	space, err := p.Spaces.GetByID(ctx, *reg.PreferredSpaceID)
	if err != nil {
		return skip("preferred space missing")
	}
	if space.RetreatID != reg.RetreatID {
		return skip("preferred space belongs to another retreat")
	}
	if space.Locked {
		return skip("preferred space locked")
	}

	if p.EnforceCapacity {
		n, err := p.Spaces.Occupancy(ctx, space.ID)
		if err != nil {
			return skip("occupancy lookup failed: " + err.Error())
		}
		if n >= int64(space.MaxSize) {
			return skip("preferred space full")
		}
	}

	pos, err := p.Spaces.NextPosition(ctx, space.ID)
	if err != nil {
		return skip("position lookup failed: " + err.Error())
	}
	if err := p.Spaces.InsertAssignment(ctx, models.ServiceAssignment{
		RetreatID:      reg.RetreatID,
		SpaceID:        space.ID,
		RegistrationID: reg.ID,
		Position:       pos,
		Role:           models.ServiceRoleMember,
	}); err != nil {
		return skip("insert failed: " + err.Error())
	}
	if err := p.Retreats.ForceBumpVersion(ctx, reg.RetreatID, models.RosterSpaces); err != nil {
		// The assignment row exists; the counter catches up on the next
		// roster commit. Worth a warning, not a failure.
		p.Log.Warn("spaces version bump failed after auto-assignment",
			zap.String("retreat_id", reg.RetreatID.Hex()),
			zap.Error(err))
	}

	return assignment{
		outcome:  metrics.OutcomeAssigned,
		spaceID:  space.ID,
		space:    space.Name,
		position: pos,
	}
}
