// internal/app/roster/families/resource.go
package families

import (
	"context"

	"github.com/retreathub/retreathub/internal/app/roster"
	familystore "github.com/retreathub/retreathub/internal/app/store/families"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Roster is the family implementation of the engine's Resource capability
// set for full-snapshot reconciliation.
type Roster struct {
	families *familystore.Store
	regs     *registrationstore.Store
}

func NewRoster(db *mongo.Database) *Roster {
	return &Roster{
		families: familystore.New(db),
		regs:     registrationstore.New(db),
	}
}

// NewEngine wires the family roster into the generic reconciliation engine.
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

// NewGodparentsEngine wires the narrow role-only command into the engine.
func NewGodparentsEngine(db *mongo.Database, log *zap.Logger) *roster.Engine[GodparentsCommand, *GodparentsState, View] {
	return &roster.Engine[GodparentsCommand, *GodparentsState, View]{
		Retreats: retreatstore.New(db),
		Atomic: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txn.Run(ctx, db, log, fn)
		},
		Resource: &Godparents{NewRoster(db)},
		Log:      log,
	}
}

func (r *Roster) Kind() models.RosterKind { return models.RosterFamilies }

// Load reads the retreat's families, their membership rows, and every
// registration the command references. The participant lookup is
// deliberately unscoped by retreat so WRONG_RETREAT is detectable.
func (r *Roster) Load(ctx context.Context, retreat *models.Retreat, cmd Command) (*State, error) {
	groups, err := r.families.ListByRetreat(ctx, retreat.ID)
	if err != nil {
		return nil, err
	}
	members, err := r.families.ListMembers(ctx, retreat.ID)
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
		groups: make(map[primitive.ObjectID]models.Family, len(groups)),
		links:  make(map[primitive.ObjectID][]models.FamilyMember),
		regs:   regs,
	}
	for _, g := range groups {
		st.groups[g.ID] = g
	}
	for _, m := range members {
		st.links[m.FamilyID] = append(st.links[m.FamilyID], m)
	}
	return st, nil
}

func (r *Roster) Validate(retreat *models.Retreat, cmd Command, st *State) ([]roster.Issue, []roster.Issue) {
	return validate(retreat, cmd, st)
}

// Apply rewrites attributes and membership for every family in the snapshot
// whose desired state differs from current. Families absent from the command
// are never touched. Runs inside the commit transaction.
func (r *Roster) Apply(ctx context.Context, retreat *models.Retreat, cmd Command, st *State) error {
	for _, snap := range cmd.Snapshots {
		var familyID primitive.ObjectID
		if snap.ID == nil {
			familyID = primitive.NewObjectID()
			if err := r.families.Insert(ctx, models.Family{
				ID:        familyID,
				RetreatID: retreat.ID,
				Name:      snap.Name,
				Color:     snap.Color,
				Capacity:  snap.Capacity,
			}); err != nil {
				return err
			}
		} else {
			familyID = *snap.ID
			existing := st.groups[familyID]
			capacity := resolvedCapacity(snap, &existing)
			if existing.Name != snap.Name || existing.Color != snap.Color || existing.Capacity != capacity {
				if err := r.families.UpdateAttrs(ctx, familyID, snap.Name, snap.Color, capacity); err != nil {
					return err
				}
			}
		}

		desired := buildMembers(retreat.ID, familyID, snap)
		if snap.ID != nil && membersEqual(st.links[familyID], desired) {
			continue
		}
		if err := r.families.ReplaceMembers(ctx, familyID, desired); err != nil {
			return err
		}
	}
	return nil
}

// buildMembers turns one snapshot into ordered, role-flagged membership rows.
func buildMembers(retreatID, familyID primitive.ObjectID, snap Snapshot) []models.FamilyMember {
	roles := map[primitive.ObjectID]models.FamilyRole{}
	for _, id := range snap.Godfathers {
		roles[id] = models.FamilyRoleGodfather
	}
	for _, id := range snap.Godmothers {
		roles[id] = models.FamilyRoleGodmother
	}

	out := make([]models.FamilyMember, 0, len(snap.Members))
	for i, regID := range snap.Members {
		role := roles[regID]
		if role == "" {
			role = models.FamilyRoleMember
		}
		out = append(out, models.FamilyMember{
			RetreatID:      retreatID,
			FamilyID:       familyID,
			RegistrationID: regID,
			Position:       i + 1,
			Role:           role,
		})
	}
	return out
}

// membersEqual reports whether current membership already matches the
// desired set, ordering and roles included. Equal groups are skipped by the
// diff applier.
func membersEqual(current, desired []models.FamilyMember) bool {
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

/* ------------------------- narrow role-only path ------------------------- */

// GodparentsState is the loaded context of the role-only command.
type GodparentsState struct {
	family  *models.Family
	members []models.FamilyMember
	regs    map[primitive.ObjectID]models.Registration
}

// Godparents is the role-only Resource: same gate and version bump as the
// full snapshot path, but Apply only rewrites role flags on existing rows.
type Godparents struct {
	*Roster
}

func (g *Godparents) Load(ctx context.Context, retreat *models.Retreat, cmd GodparentsCommand) (*GodparentsState, error) {
	st := &GodparentsState{regs: map[primitive.ObjectID]models.Registration{}}

	family, err := g.families.GetByID(ctx, cmd.FamilyID)
	if err != nil && err != familystore.ErrNotFound {
		return nil, err
	}
	if family != nil && family.RetreatID == retreat.ID {
		st.family = family
	}
	if st.family == nil {
		return st, nil
	}

	members, err := g.families.ListMembers(ctx, retreat.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.FamilyID == cmd.FamilyID {
			st.members = append(st.members, m)
		}
	}

	ids := append(append([]primitive.ObjectID{}, cmd.Godfathers...), cmd.Godmothers...)
	st.regs, err = g.regs.MapCampersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (g *Godparents) Validate(retreat *models.Retreat, cmd GodparentsCommand, st *GodparentsState) ([]roster.Issue, []roster.Issue) {
	if st.family == nil {
		return []roster.Issue{
			roster.NewIssue(roster.CodeUnknownFamily,
				"family %s does not belong to this retreat", cmd.FamilyID.Hex()).WithGroup(cmd.FamilyID),
		}, nil
	}
	if st.family.Locked {
		return []roster.Issue{
			roster.NewIssue(roster.CodeFamilyLocked,
				"family %q is locked", st.family.Name).WithGroup(cmd.FamilyID),
		}, nil
	}

	memberSet := make(map[primitive.ObjectID]bool, len(st.members))
	for _, m := range st.members {
		memberSet[m.RegistrationID] = true
	}
	errs := validateGodparents(retreat, cmd.FamilyID, memberSet, cmd.Godfathers, cmd.Godmothers, st.regs)

	var warns []roster.Issue
	if len(cmd.Godfathers) == 0 && len(cmd.Godmothers) == 0 {
		warns = append(warns, roster.NewIssue(roster.CodeMissingGodparents,
			"family %q has no godparents nominated", st.family.Name).WithGroup(cmd.FamilyID))
	}
	return errs, warns
}

func (g *Godparents) Apply(ctx context.Context, retreat *models.Retreat, cmd GodparentsCommand, st *GodparentsState) error {
	roles := map[primitive.ObjectID]models.FamilyRole{}
	for _, id := range cmd.Godfathers {
		roles[id] = models.FamilyRoleGodfather
	}
	for _, id := range cmd.Godmothers {
		roles[id] = models.FamilyRoleGodmother
	}
	return g.families.UpdateRoles(ctx, cmd.FamilyID, roles)
}
