// internal/app/roster/spaces/spaces.go

// Package spaces reconciles the service space roster: volunteer duty areas
// with a [min,max] occupancy range, a name uniqueness key, and exclusive
// coordinator/vice leadership roles.
package spaces

import (
	"context"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/app/roster"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	spacestore "github.com/retreathub/retreathub/internal/app/store/spaces"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Snapshot is one service space's desired state. A nil ID means "create a
// new space". Coordinator and Vice, when set, must reference members.
type Snapshot struct {
	ID          *primitive.ObjectID
	Name        string
	MinSize     int
	MaxSize     int
	Members     []primitive.ObjectID
	Coordinator *primitive.ObjectID
	Vice        *primitive.ObjectID
}

// Command is the desired membership snapshot for a set of service spaces.
type Command struct {
	Snapshots []Snapshot
}

// State is the loaded context the service space rule table runs against.
type State struct {
	groups map[primitive.ObjectID]models.ServiceSpace
	links  map[primitive.ObjectID][]models.ServiceAssignment
	regs   map[primitive.ObjectID]models.ServiceRegistration
}

// Roster is the service space implementation of the engine's Resource
// capability set.
type Roster struct {
	spaces *spacestore.Store
	regs   *registrationstore.Store
}

func NewRoster(db *mongo.Database) *Roster {
	return &Roster{
		spaces: spacestore.New(db),
		regs:   registrationstore.New(db),
	}
}

// NewEngine wires the service space roster into the generic reconciliation
// engine.
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

func (r *Roster) Kind() models.RosterKind { return models.RosterSpaces }

func (r *Roster) Load(ctx context.Context, retreat *models.Retreat, cmd Command) (*State, error) {
	groups, err := r.spaces.ListByRetreat(ctx, retreat.ID)
	if err != nil {
		return nil, err
	}
	links, err := r.spaces.ListAssignments(ctx, retreat.ID)
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
	regs, err := r.regs.MapServiceByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	st := &State{
		groups: make(map[primitive.ObjectID]models.ServiceSpace, len(groups)),
		links:  make(map[primitive.ObjectID][]models.ServiceAssignment),
		regs:   regs,
	}
	for _, g := range groups {
		st.groups[g.ID] = g
	}
	for _, l := range links {
		st.links[l.SpaceID] = append(st.links[l.SpaceID], l)
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
	nameCount := map[string]int{}
	for id, g := range st.groups {
		if touched[id] {
			continue
		}
		nameCount[g.NameCI]++
	}

	// Volunteers already serving in a space the command leaves untouched.
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
		nameCount[text.Fold(snap.Name)]++
	}

	for _, snap := range cmd.Snapshots {
		groupID := primitive.NilObjectID
		var existing *models.ServiceSpace
		if snap.ID != nil {
			groupID = *snap.ID
			g, ok := st.groups[groupID]
			if !ok || g.RetreatID != retreat.ID {
				errs = append(errs, roster.NewIssue(roster.CodeUnknownSpace,
					"service space %s does not belong to this retreat", groupID.Hex()).WithGroup(groupID))
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

		// Any snapshot referencing a locked space is rejected, including
		// attribute-only changes and emptied member lists.
		if existing != nil && existing.Locked {
			errs = append(errs, issue(roster.NewIssue(roster.CodeSpaceLocked,
				"service space %q is locked", snap.Name)))
		}
		if nameCount[text.Fold(snap.Name)] > 1 {
			errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateName,
				"service space name %q is already used in this retreat", snap.Name)))
		}
		if snap.MaxSize > 0 && len(snap.Members) > snap.MaxSize {
			errs = append(errs, issue(roster.NewIssue(roster.CodeCapacityExceeded,
				"service space %q has %d members but max %d", snap.Name, len(snap.Members), snap.MaxSize)).
				WithParticipants(snap.Members...))
		}

		memberSet := map[primitive.ObjectID]bool{}
		for _, id := range snap.Members {
			memberSet[id] = true

			reg, ok := st.regs[id]
			if !ok {
				errs = append(errs, issue(roster.NewIssue(roster.CodeUnknownRegistration,
					"service registration %s does not exist", id.Hex())).WithParticipants(id))
				continue
			}
			if reg.RetreatID != retreat.ID {
				errs = append(errs, issue(roster.NewIssue(roster.CodeWrongRetreat,
					"service registration %s belongs to another retreat", id.Hex())).WithParticipants(id))
				continue
			}
			if !reg.RosterEligible() {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidMember,
					"service registration %s is not eligible for space membership", id.Hex())).WithParticipants(id))
			}
			if memberCounts[id] > 1 {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicatedMember,
					"service registration %s appears more than once in this request", id.Hex())).WithParticipants(id))
			}
			if other, held := heldElsewhere[id]; held {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicatedMember,
					"service registration %s is already assigned to space %s", id.Hex(), other.Hex())).WithParticipants(id))
			}
		}

		// Leadership: at most one coordinator and one vice, both must be
		// members, and one person cannot hold both roles.
		if snap.Coordinator != nil && snap.Vice != nil && *snap.Coordinator == *snap.Vice {
			errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateLeader,
				"registration %s cannot be both coordinator and vice", snap.Coordinator.Hex())).
				WithParticipants(*snap.Coordinator))
		}
		for _, lead := range []struct {
			id   *primitive.ObjectID
			name string
		}{{snap.Coordinator, "coordinator"}, {snap.Vice, "vice"}} {
			if lead.id == nil {
				continue
			}
			if !memberSet[*lead.id] {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidMember,
					"nominated %s %s is not a member of the space", lead.name, lead.id.Hex())).
					WithParticipants(*lead.id))
			}
		}

		// Advisory findings.
		if snap.MinSize > 0 && len(snap.Members) > 0 && len(snap.Members) < snap.MinSize {
			warns = append(warns, issue(roster.NewIssue(roster.CodeBelowMinimum,
				"service space %q has %d members, below minimum %d", snap.Name, len(snap.Members), snap.MinSize)))
		}
		if len(snap.Members) > 0 && snap.Coordinator == nil {
			warns = append(warns, issue(roster.NewIssue(roster.CodeMissingCoordinator,
				"service space %q has no coordinator", snap.Name)))
		}
		if len(snap.Members) > 0 && snap.Vice == nil {
			warns = append(warns, issue(roster.NewIssue(roster.CodeMissingVice,
				"service space %q has no vice", snap.Name)))
		}
	}
	return errs, warns
}

func (r *Roster) Apply(ctx context.Context, retreat *models.Retreat, cmd Command, st *State) error {
	for _, snap := range cmd.Snapshots {
		var spaceID primitive.ObjectID
		if snap.ID == nil {
			spaceID = primitive.NewObjectID()
			if err := r.spaces.Insert(ctx, models.ServiceSpace{
				ID:        spaceID,
				RetreatID: retreat.ID,
				Name:      snap.Name,
				MinSize:   snap.MinSize,
				MaxSize:   snap.MaxSize,
			}); err != nil {
				return err
			}
		} else {
			spaceID = *snap.ID
			existing := st.groups[spaceID]
			if existing.Name != snap.Name || existing.MinSize != snap.MinSize || existing.MaxSize != snap.MaxSize {
				if err := r.spaces.UpdateAttrs(ctx, spaceID, snap.Name, snap.MinSize, snap.MaxSize); err != nil {
					return err
				}
			}
		}

		desired := buildAssignments(retreat.ID, spaceID, snap)
		if snap.ID != nil && assignmentsEqual(st.links[spaceID], desired) {
			continue
		}
		if err := r.spaces.ReplaceAssignments(ctx, spaceID, desired); err != nil {
			return err
		}
	}
	return nil
}

func buildAssignments(retreatID, spaceID primitive.ObjectID, snap Snapshot) []models.ServiceAssignment {
	out := make([]models.ServiceAssignment, 0, len(snap.Members))
	for i, regID := range snap.Members {
		role := models.ServiceRoleMember
		if snap.Coordinator != nil && *snap.Coordinator == regID {
			role = models.ServiceRoleCoordinator
		} else if snap.Vice != nil && *snap.Vice == regID {
			role = models.ServiceRoleVice
		}
		out = append(out, models.ServiceAssignment{
			RetreatID:      retreatID,
			SpaceID:        spaceID,
			RegistrationID: regID,
			Position:       i + 1,
			Role:           role,
		})
	}
	return out
}

func assignmentsEqual(current, desired []models.ServiceAssignment) bool {
	if len(current) != len(desired) {
		return false
	}
	for i := range current {
		if current[i].RegistrationID != desired[i].RegistrationID ||
			current[i].Position != desired[i].Position ||
			current[i].Role != desired[i].Role {
			return false
		}
	}
	return true
}

// MemberView is one space member joined with their registration summary.
type MemberView struct {
	RegistrationID primitive.ObjectID `json:"registration_id"`
	FullName       string             `json:"full_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Gender         models.Gender      `json:"gender"`
	City           string             `json:"city"`
	Position       int                `json:"position"`
	Role           models.ServiceRole `json:"role"`
}

// View is the per-space summary returned after a commit or on listing.
type View struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	MinSize        int                `json:"min_size"`
	MaxSize        int                `json:"max_size"`
	Remaining      int                `json:"remaining"`
	Locked         bool               `json:"locked"`
	Total          int                `json:"total"`
	Male           int                `json:"male"`
	Female         int                `json:"female"`
	HasCoordinator bool               `json:"has_coordinator"`
	HasVice        bool               `json:"has_vice"`
	Members        []MemberView       `json:"members"`
}

// Project re-reads the retreat's service spaces and membership joined with
// registration summaries. Pure read, no side effects.
func (r *Roster) Project(ctx context.Context, retreatID primitive.ObjectID) ([]View, error) {
	groups, err := r.spaces.ListByRetreat(ctx, retreatID)
	if err != nil {
		return nil, err
	}
	links, err := r.spaces.ListAssignments(ctx, retreatID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.RegistrationID)
	}
	regs, err := r.regs.MapServiceByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	bySpace := map[primitive.ObjectID][]models.ServiceAssignment{}
	for _, l := range links {
		bySpace[l.SpaceID] = append(bySpace[l.SpaceID], l)
	}

	views := make([]View, 0, len(groups))
	for _, g := range groups {
		v := View{
			ID:      g.ID,
			Name:    g.Name,
			MinSize: g.MinSize,
			MaxSize: g.MaxSize,
			Locked:  g.Locked,
			Members: []MemberView{},
		}
		for _, l := range bySpace[g.ID] {
			reg := regs[l.RegistrationID]
			v.Members = append(v.Members, MemberView{
				RegistrationID: l.RegistrationID,
				FullName:       reg.FullName,
				Email:          reg.Email,
				Phone:          reg.Phone,
				Gender:         reg.Gender,
				City:           reg.City,
				Position:       l.Position,
				Role:           l.Role,
			})
			v.Total++
			switch reg.Gender {
			case models.GenderMale:
				v.Male++
			case models.GenderFemale:
				v.Female++
			}
			switch l.Role {
			case models.ServiceRoleCoordinator:
				v.HasCoordinator = true
			case models.ServiceRoleVice:
				v.HasVice = true
			}
		}
		if v.Remaining = g.MaxSize - v.Total; v.Remaining < 0 {
			v.Remaining = 0
		}
		views = append(views, v)
	}
	return views, nil
}
