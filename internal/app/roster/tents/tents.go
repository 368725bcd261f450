// internal/app/roster/tents/tents.go

// Package tents reconciles the tent roster: gender-categorized sleeping
// units with a [min,max] occupancy range and a number uniqueness key.
package tents

import (
	"context"

	"github.com/retreathub/retreathub/internal/app/roster"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	tentstore "github.com/retreathub/retreathub/internal/app/store/tents"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Snapshot is one tent's desired state. A nil ID means "create a new tent".
type Snapshot struct {
	ID       *primitive.ObjectID
	Number   int
	Category models.Gender
	MinSize  int
	MaxSize  int
	Members  []primitive.ObjectID
}

// Command is the desired occupancy snapshot for a set of tents.
type Command struct {
	Snapshots []Snapshot
}

// State is the loaded context the tent rule table runs against.
type State struct {
	groups map[primitive.ObjectID]models.Tent
	links  map[primitive.ObjectID][]models.TentAssignment
	regs   map[primitive.ObjectID]models.Registration
}

// Roster is the tent implementation of the engine's Resource capability set.
type Roster struct {
	tents *tentstore.Store
	regs  *registrationstore.Store
}

func NewRoster(db *mongo.Database) *Roster {
	return &Roster{
		tents: tentstore.New(db),
		regs:  registrationstore.New(db),
	}
}

// NewEngine wires the tent roster into the generic reconciliation engine.
func NewEngine(db *mongo.Database, log *zap.Logger) *roster.Engine[Command, *State, View] {
	return &roster.Engine[Command, *State, View]{
		Retreats: retreatstore.New(db),
		Atomic: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txn.Run(ctx, db, log, fn)
		},
		Resource: NewRoster(db),
		Log:      log,
	}
}

func (r *Roster) Kind() models.RosterKind { return models.RosterTents }

func (r *Roster) Load(ctx context.Context, retreat *models.Retreat, cmd Command) (*State, error) {
	groups, err := r.tents.ListByRetreat(ctx, retreat.ID)
	if err != nil {
		return nil, err
	}
	links, err := r.tents.ListAssignments(ctx, retreat.ID)
	if err != nil {
		return nil, err
	}

	var ids []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for _, snap := range cmd.Snapshots {
		for _, id := range snap.Members {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	regs, err := r.regs.MapCampersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	st := &State{
		groups: make(map[primitive.ObjectID]models.Tent, len(groups)),
		links:  make(map[primitive.ObjectID][]models.TentAssignment),
		regs:   regs,
	}
	for _, g := range groups {
		st.groups[g.ID] = g
	}
	for _, l := range links {
		st.links[l.TentID] = append(st.links[l.TentID], l)
	}
	return st, nil
}

func (r *Roster) Validate(retreat *models.Retreat, cmd Command, st *State) (errs, warns []roster.Issue) {
	memberCounts := map[primitive.ObjectID]int{}
	for _, snap := range cmd.Snapshots {
		perGroup := map[primitive.ObjectID]bool{}
		for _, id := range snap.Members {
			memberCounts[id]++
			if perGroup[id] {
				memberCounts[id]++
			}
			perGroup[id] = true
		}
	}

	touched := map[primitive.ObjectID]bool{}
	for _, snap := range cmd.Snapshots {
		if snap.ID != nil {
			touched[*snap.ID] = true
		}
	}
	numberCount := map[int]int{}
	for id, g := range st.groups {
		if touched[id] {
			continue
		}
		numberCount[g.Number]++
	}

	// Campers already sleeping in a tent the command leaves untouched.
	heldElsewhere := map[primitive.ObjectID]primitive.ObjectID{}
	for gid, rows := range st.links {
		if touched[gid] {
			continue
		}
		for _, l := range rows {
			heldElsewhere[l.RegistrationID] = gid
		}
	}
	for _, snap := range cmd.Snapshots {
		numberCount[snap.Number]++
	}

	for _, snap := range cmd.Snapshots {
		groupID := primitive.NilObjectID
		var existing *models.Tent
		if snap.ID != nil {
			groupID = *snap.ID
			g, ok := st.groups[groupID]
			if !ok || g.RetreatID != retreat.ID {
				errs = append(errs, roster.NewIssue(roster.CodeUnknownTent,
					"tent %s does not belong to this retreat", groupID.Hex()).WithGroup(groupID))
				continue
			}
			existing = &g
		}
		issue := func(i roster.Issue) roster.Issue {
			if groupID != primitive.NilObjectID {
				return i.WithGroup(groupID)
			}
			return i
		}

		// Any snapshot referencing a locked tent is rejected, including
		// attribute-only changes and emptied member lists.
		if existing != nil && existing.Locked {
			errs = append(errs, issue(roster.NewIssue(roster.CodeTentLocked,
				"tent %d is locked", snap.Number)))
		}
		if numberCount[snap.Number] > 1 {
			errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateNumber,
				"tent number %d is already used in this retreat", snap.Number)))
		}
		if snap.MaxSize > 0 && len(snap.Members) > snap.MaxSize {
			errs = append(errs, issue(roster.NewIssue(roster.CodeCapacityExceeded,
				"tent %d has %d occupants but max %d", snap.Number, len(snap.Members), snap.MaxSize)).
				WithParticipants(snap.Members...))
		}

		for _, id := range snap.Members {
			reg, ok := st.regs[id]
			if !ok {
				errs = append(errs, issue(roster.NewIssue(roster.CodeUnknownRegistration,
					"registration %s does not exist", id.Hex())).WithParticipants(id))
				continue
			}
			if reg.RetreatID != retreat.ID {
				errs = append(errs, issue(roster.NewIssue(roster.CodeWrongRetreat,
					"registration %s belongs to another retreat", id.Hex())).WithParticipants(id))
				continue
			}
			if reg.Gender != snap.Category {
				errs = append(errs, issue(roster.NewIssue(roster.CodeWrongCategory,
					"registration %s does not match tent category %s", id.Hex(), snap.Category)).WithParticipants(id))
			}
			if !reg.RosterEligible() {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidMember,
					"registration %s is not eligible for tent assignment", id.Hex())).WithParticipants(id))
			}
			if memberCounts[id] > 1 {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicatedMember,
					"registration %s appears more than once in this request", id.Hex())).WithParticipants(id))
			}
			if other, held := heldElsewhere[id]; held {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicatedMember,
					"registration %s is already assigned to tent %s", id.Hex(), other.Hex())).WithParticipants(id))
			}
		}

		if snap.MinSize > 0 && len(snap.Members) > 0 && len(snap.Members) < snap.MinSize {
			warns = append(warns, issue(roster.NewIssue(roster.CodeBelowMinimum,
				"tent %d has %d occupants, below minimum %d", snap.Number, len(snap.Members), snap.MinSize)))
		}
	}
	return errs, warns
}

func (r *Roster) Apply(ctx context.Context, retreat *models.Retreat, cmd Command, st *State) error {
	for _, snap := range cmd.Snapshots {
		var tentID primitive.ObjectID
		if snap.ID == nil {
			tentID = primitive.NewObjectID()
			if err := r.tents.Insert(ctx, models.Tent{
				ID:        tentID,
				RetreatID: retreat.ID,
				Number:    snap.Number,
				Category:  snap.Category,
				MinSize:   snap.MinSize,
				MaxSize:   snap.MaxSize,
			}); err != nil {
				return err
			}
		} else {
			tentID = *snap.ID
			existing := st.groups[tentID]
			if existing.Number != snap.Number || existing.Category != snap.Category ||
				existing.MinSize != snap.MinSize || existing.MaxSize != snap.MaxSize {
				if err := r.tents.UpdateAttrs(ctx, tentID, snap.Number, snap.Category, snap.MinSize, snap.MaxSize); err != nil {
					return err
				}
			}
		}

		desired := make([]models.TentAssignment, 0, len(snap.Members))
		for i, regID := range snap.Members {
			desired = append(desired, models.TentAssignment{
				RetreatID:      retreat.ID,
				TentID:         tentID,
				RegistrationID: regID,
				Position:       i + 1,
			})
		}
		if snap.ID != nil && assignmentsEqual(st.links[tentID], desired) {
			continue
		}
		if err := r.tents.ReplaceAssignments(ctx, tentID, desired); err != nil {
			return err
		}
	}
	return nil
}

func assignmentsEqual(current, desired []models.TentAssignment) bool {
	if len(current) != len(desired) {
		return false
	}
	for i := range current {
		if current[i].RegistrationID != desired[i].RegistrationID ||
			current[i].Position != desired[i].Position {
			return false
		}
	}
	return true
}

// OccupantView is one tent occupant joined with their registration summary.
type OccupantView struct {
	RegistrationID primitive.ObjectID `json:"registration_id"`
	FullName       string             `json:"full_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Gender         models.Gender      `json:"gender"`
	City           string             `json:"city"`
	Position       int                `json:"position"`
}

// View is the per-tent summary returned after a commit or on listing.
type View struct {
	ID        primitive.ObjectID `json:"id"`
	Number    int                `json:"number"`
	Category  models.Gender      `json:"category"`
	MinSize   int                `json:"min_size"`
	MaxSize   int                `json:"max_size"`
	Remaining int                `json:"remaining"`
	Locked    bool               `json:"locked"`
	Total     int                `json:"total"`
	Members   []OccupantView     `json:"members"`
}

// Project re-reads the retreat's tents and occupancy joined with
// registration summaries. Pure read, no side effects.
func (r *Roster) Project(ctx context.Context, retreatID primitive.ObjectID) ([]View, error) {
	groups, err := r.tents.ListByRetreat(ctx, retreatID)
	if err != nil {
		return nil, err
	}
	links, err := r.tents.ListAssignments(ctx, retreatID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.RegistrationID)
	}
	regs, err := r.regs.MapCampersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byTent := map[primitive.ObjectID][]models.TentAssignment{}
	for _, l := range links {
		byTent[l.TentID] = append(byTent[l.TentID], l)
	}

	views := make([]View, 0, len(groups))
	for _, g := range groups {
		v := View{
			ID:       g.ID,
			Number:   g.Number,
			Category: g.Category,
			MinSize:  g.MinSize,
			MaxSize:  g.MaxSize,
			Locked:   g.Locked,
			Members:  []OccupantView{},
		}
		for _, l := range byTent[g.ID] {
			reg := regs[l.RegistrationID]
			v.Members = append(v.Members, OccupantView{
				RegistrationID: l.RegistrationID,
				FullName:       reg.FullName,
				Email:          reg.Email,
				Phone:          reg.Phone,
				Gender:         reg.Gender,
				City:           reg.City,
				Position:       l.Position,
			})
			v.Total++
		}
		if v.Remaining = g.MaxSize - v.Total; v.Remaining < 0 {
			v.Remaining = 0
		}
		views = append(views, v)
	}
	return views, nil
}
