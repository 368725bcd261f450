// internal/app/roster/families/rules.go
package families

import (
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is the loaded context the family rule table runs against: the
// retreat's current families, their membership rows keyed by family, and the
// registrations referenced by the command.
type State struct {
	groups map[primitive.ObjectID]models.Family
	links  map[primitive.ObjectID][]models.FamilyMember
	regs   map[primitive.ObjectID]models.Registration
}

// validate evaluates the family rule table. It never touches storage; the
// returned error list blocks a commit unconditionally, the warning list only
// without IgnoreWarnings.
func validate(retreat *models.Retreat, cmd Command, st *State) (errs, warns []roster.Issue) {
	// Registrations appearing in more than one family of the same request,
	// or twice in one family.
	memberCounts := map[primitive.ObjectID]int{}
	for _, snap := range cmd.Snapshots {
		perGroup := map[primitive.ObjectID]bool{}
		for _, id := range snap.Members {
			memberCounts[id]++
			if perGroup[id] {
				memberCounts[id]++ // count in-group repeats as duplicates too
			}
			perGroup[id] = true
		}
	}

	// Final uniqueness-key state: untouched existing families keep their
	// name/color; snapshot families contribute their desired values.
	touched := map[primitive.ObjectID]bool{}
	for _, snap := range cmd.Snapshots {
		if snap.ID != nil {
			touched[*snap.ID] = true
		}
	}
	nameCount := map[string]int{}
	colorCount := map[string]int{}
	for id, g := range st.groups {
		if touched[id] {
			continue
		}
		nameCount[g.NameCI]++
		colorCount[g.Color]++
	}

	// Registrations already placed in a family the command leaves untouched.
	// Committing them into a snapshot family would give one participant two
	// memberships.
	heldElsewhere := map[primitive.ObjectID]primitive.ObjectID{}
	for gid, rows := range st.links {
		if touched[gid] {
			continue
		}
		for _, m := range rows {
			heldElsewhere[m.RegistrationID] = gid
		}
	}
	for _, snap := range cmd.Snapshots {
		nameCount[text.Fold(snap.Name)]++
		colorCount[snap.Color]++
	}

	for _, snap := range cmd.Snapshots {
		groupID := primitive.NilObjectID
		var existing *models.Family
		if snap.ID != nil {
			groupID = *snap.ID
			g, ok := st.groups[groupID]
			if !ok || g.RetreatID != retreat.ID {
				errs = append(errs, roster.NewIssue(roster.CodeUnknownFamily,
					"family %s does not belong to this retreat", groupID.Hex()).WithGroup(groupID))
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

		// Any snapshot referencing a locked family is rejected, including
		// attribute-only changes and emptied member lists.
		if existing != nil && existing.Locked {
			errs = append(errs, issue(roster.NewIssue(roster.CodeFamilyLocked,
				"family %q is locked", snap.Name)))
		}

		if nameCount[text.Fold(snap.Name)] > 1 {
			errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateName,
				"family name %q is already used in this retreat", snap.Name)))
		}
		if !models.ValidFamilyColor(snap.Color) {
			errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidColor,
				"color %q is not in the allowed palette", snap.Color)))
		} else if colorCount[snap.Color] > 1 {
			errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateColor,
				"color %q is already used in this retreat", snap.Color)))
		}

		capacity := resolvedCapacity(snap, existing)
		if capacity > 0 && len(snap.Members) > capacity {
			errs = append(errs, issue(roster.NewIssue(roster.CodeCapacityExceeded,
				"family %q has %d members but capacity %d", snap.Name, len(snap.Members), capacity)).
				WithParticipants(snap.Members...))
		}

		memberSet := map[primitive.ObjectID]bool{}
		for _, id := range snap.Members {
			memberSet[id] = true

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
			if !reg.RosterEligible() {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidMember,
					"registration %s is not eligible for family membership", id.Hex())).WithParticipants(id))
			}
			if memberCounts[id] > 1 {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateRegistration,
					"registration %s appears more than once in this request", id.Hex())).WithParticipants(id))
			}
			if other, held := heldElsewhere[id]; held {
				errs = append(errs, issue(roster.NewIssue(roster.CodeDuplicateRegistration,
					"registration %s already belongs to family %s", id.Hex(), other.Hex())).WithParticipants(id))
			}
		}

		errs = append(errs, validateGodparents(retreat, groupID, memberSet, snap.Godfathers, snap.Godmothers, st.regs)...)

		// Advisory findings.
		if len(snap.Members) > 0 && len(snap.Godfathers) == 0 && len(snap.Godmothers) == 0 {
			warns = append(warns, issue(roster.NewIssue(roster.CodeMissingGodparents,
				"family %q has no godparents nominated", snap.Name)))
		}
		warns = append(warns, sameCityWarnings(groupID, snap.Members, st.regs)...)
	}
	return errs, warns
}

// resolvedCapacity is the capacity a snapshot commits: a non-positive value
// on an existing family keeps the stored capacity. Validation and Apply both
// go through here so the checked and persisted values agree.
func resolvedCapacity(snap Snapshot, existing *models.Family) int {
	if snap.Capacity <= 0 && existing != nil {
		return existing.Capacity
	}
	return snap.Capacity
}

// validateGodparents checks the godparent nominations of one family against
// its desired member set. Shared by the full-snapshot and role-only paths.
func validateGodparents(retreat *models.Retreat, groupID primitive.ObjectID, memberSet map[primitive.ObjectID]bool, godfathers, godmothers []primitive.ObjectID, regs map[primitive.ObjectID]models.Registration) []roster.Issue {
	var errs []roster.Issue
	issue := func(i roster.Issue) roster.Issue {
		if groupID != primitive.NilObjectID {
			return i.WithGroup(groupID)
		}
		return i
	}

	if len(godfathers) > models.MaxGodparentsPerRole {
		errs = append(errs, issue(roster.NewIssue(roster.CodeTooManyPadrinhos,
			"no more than %d godfathers per family", models.MaxGodparentsPerRole)).WithParticipants(godfathers...))
	}
	if len(godmothers) > models.MaxGodparentsPerRole {
		errs = append(errs, issue(roster.NewIssue(roster.CodeTooManyPadrinhos,
			"no more than %d godmothers per family", models.MaxGodparentsPerRole)).WithParticipants(godmothers...))
	}

	inGodfathers := map[primitive.ObjectID]bool{}
	for _, id := range godfathers {
		inGodfathers[id] = true
	}
	for _, id := range godmothers {
		if inGodfathers[id] {
			errs = append(errs, issue(roster.NewIssue(roster.CodePadrinhoConflict,
				"registration %s cannot be both godfather and godmother", id.Hex())).WithParticipants(id))
		}
	}

	check := func(ids []primitive.ObjectID, want models.Gender, roleName string) {
		for _, id := range ids {
			if !memberSet[id] {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidPadrinho,
					"nominated %s %s is not a member of the family", roleName, id.Hex())).WithParticipants(id))
				continue
			}
			if reg, ok := regs[id]; ok && reg.RetreatID == retreat.ID && reg.Gender != want {
				errs = append(errs, issue(roster.NewIssue(roster.CodeInvalidPadrinhoGender,
					"nominated %s %s must be %s", roleName, id.Hex(), want)).WithParticipants(id))
			}
		}
	}
	check(godfathers, models.GenderMale, "godfather")
	check(godmothers, models.GenderFemale, "godmother")
	return errs
}

// sameCityWarnings flags clusters of members sharing a home city. Heuristic
// social signal only, never blocking on its own.
func sameCityWarnings(groupID primitive.ObjectID, members []primitive.ObjectID, regs map[primitive.ObjectID]models.Registration) []roster.Issue {
	byCity := map[string][]primitive.ObjectID{}
	for _, id := range members {
		reg, ok := regs[id]
		if !ok || reg.CityCI == "" {
			continue
		}
		byCity[reg.CityCI] = append(byCity[reg.CityCI], id)
	}
	var warns []roster.Issue
	for city, ids := range byCity {
		if len(ids) < 2 {
			continue
		}
		w := roster.NewIssue(roster.CodeSameCity,
			"%d members are from the same city (%s)", len(ids), city).WithParticipants(ids...)
		if groupID != primitive.NilObjectID {
			w = w.WithGroup(groupID)
		}
		warns = append(warns, w)
	}
	return warns
}
