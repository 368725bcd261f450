// internal/app/roster/families/rules_test.go
package families

import (
	"testing"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stateBuilder struct {
	retreat *models.Retreat
	st      *State
}

func newState() *stateBuilder {
	return &stateBuilder{
		retreat: &models.Retreat{ID: primitive.NewObjectID(), Name: "Spring Retreat"},
		st: &State{
			groups: map[primitive.ObjectID]models.Family{},
			links:  map[primitive.ObjectID][]models.FamilyMember{},
			regs:   map[primitive.ObjectID]models.Registration{},
		},
	}
}

func (b *stateBuilder) family(name, color string, capacity int, locked bool) models.Family {
	f := models.Family{
		ID:        primitive.NewObjectID(),
		RetreatID: b.retreat.ID,
		Name:      name,
		NameCI:    text.Fold(name),
		Color:     color,
		Capacity:  capacity,
		Locked:    locked,
	}
	b.st.groups[f.ID] = f
	return f
}

func (b *stateBuilder) camper(gender models.Gender, city string) primitive.ObjectID {
	id := primitive.NewObjectID()
	b.st.regs[id] = models.Registration{
		ID:        id,
		RetreatID: b.retreat.ID,
		Gender:    gender,
		City:      city,
		CityCI:    text.Fold(city),
		Enabled:   true,
		Status:    models.StatusConfirmed,
	}
	return id
}

func codes(issues []roster.Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Code]++
	}
	return out
}

func TestValidate_CleanSnapshot(t *testing.T) {
	b := newState()
	gf := b.camper(models.GenderMale, "Recife")
	gm := b.camper(models.GenderFemale, "Olinda")
	m := b.camper(models.GenderMale, "Natal")

	errs, warns := validate(b.retreat, Command{Snapshots: []Snapshot{{
		Name:       "Esperança",
		Color:      "Blue",
		Capacity:   8,
		Members:    []primitive.ObjectID{gf, gm, m},
		Godfathers: []primitive.ObjectID{gf},
		Godmothers: []primitive.ObjectID{gm},
	}}}, b.st)

	if len(errs) != 0 {
		t.Fatalf("errors = %+v, want none", errs)
	}
	if len(warns) != 0 {
		t.Errorf("warnings = %+v, want none", warns)
	}
}

func TestValidate_LockedFamilyRejectsMembers(t *testing.T) {
	b := newState()
	fam := b.family("Paz", "Green", 8, true)
	m := b.camper(models.GenderMale, "Recife")

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
		ID:      &fam.ID,
		Name:    fam.Name,
		Color:   fam.Color,
		Members: []primitive.ObjectID{m},
	}}}, b.st)

	if codes(errs)[roster.CodeFamilyLocked] != 1 {
		t.Errorf("errors = %+v, want FAMILY_LOCKED", errs)
	}
}

func TestValidate_LockedFamilyRejectsAnySnapshot(t *testing.T) {
	b := newState()
	fam := b.family("Paz", "Green", 8, true)
	m := b.camper(models.GenderMale, "Recife")
	b.st.links[fam.ID] = []models.FamilyMember{
		{FamilyID: fam.ID, RegistrationID: m, Position: 1, Role: models.FamilyRoleMember},
	}

	// Emptying a locked family must not slip past the lock.
	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
		ID: &fam.ID, Name: fam.Name, Color: fam.Color, Capacity: fam.Capacity,
	}}}, b.st)
	if codes(errs)[roster.CodeFamilyLocked] != 1 {
		t.Errorf("errors = %+v, want FAMILY_LOCKED for emptied family", errs)
	}

	// Attribute-only changes are blocked too.
	errs, _ = validate(b.retreat, Command{Snapshots: []Snapshot{{
		ID: &fam.ID, Name: "Renomeada", Color: "Purple", Capacity: fam.Capacity,
	}}}, b.st)
	if codes(errs)[roster.CodeFamilyLocked] != 1 {
		t.Errorf("errors = %+v, want FAMILY_LOCKED for attribute change", errs)
	}
}

func TestValidate_MemberHeldByUntouchedFamily(t *testing.T) {
	b := newState()
	other := b.family("Paz", "Green", 8, false)
	m := b.camper(models.GenderMale, "")
	b.st.links[other.ID] = []models.FamilyMember{
		{FamilyID: other.ID, RegistrationID: m, Position: 1, Role: models.FamilyRoleMember},
	}

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
		Name: "Esperança", Color: "Blue", Capacity: 8, Members: []primitive.ObjectID{m},
	}}}, b.st)
	if codes(errs)[roster.CodeDuplicateRegistration] != 1 {
		t.Errorf("errors = %+v, want DUPLICATE_REGISTRATION against untouched family", errs)
	}

	// Moving the member is fine when the source family is in the request.
	errs, _ = validate(b.retreat, Command{Snapshots: []Snapshot{
		{ID: &other.ID, Name: other.Name, Color: other.Color, Capacity: 8},
		{Name: "Esperança", Color: "Blue", Capacity: 8, Members: []primitive.ObjectID{m}},
	}}, b.st)
	if codes(errs)[roster.CodeDuplicateRegistration] != 0 {
		t.Errorf("errors = %+v, move within one request must pass", errs)
	}
}

func TestResolvedCapacity_OmittedKeepsStored(t *testing.T) {
	existing := &models.Family{Capacity: 3}

	if got := resolvedCapacity(Snapshot{Capacity: 0}, existing); got != 3 {
		t.Errorf("omitted capacity = %d, want stored 3", got)
	}
	if got := resolvedCapacity(Snapshot{Capacity: 5}, existing); got != 5 {
		t.Errorf("submitted capacity = %d, want 5", got)
	}
	if got := resolvedCapacity(Snapshot{Capacity: 0}, nil); got != 0 {
		t.Errorf("new family capacity = %d, want 0", got)
	}
}

func TestValidate_DuplicateColorFlagsBothSnapshots(t *testing.T) {
	b := newState()

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "Esperança", Color: "Blue", Capacity: 8},
		{Name: "Paz", Color: "Blue", Capacity: 8},
	}}, b.st)

	if codes(errs)[roster.CodeDuplicateColor] != 2 {
		t.Errorf("errors = %+v, want DUPLICATE_COLOR on both families", errs)
	}
}

func TestValidate_DuplicateNameAgainstUntouchedFamily(t *testing.T) {
	b := newState()
	b.family("Esperança", "Red", 8, false)

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "esperança", Color: "Blue", Capacity: 8},
	}}, b.st)

	if codes(errs)[roster.CodeDuplicateName] != 1 {
		t.Errorf("errors = %+v, want DUPLICATE_NAME (case-insensitive)", errs)
	}
}

func TestValidate_RenamedFamilyKeepsItsOwnName(t *testing.T) {
	b := newState()
	fam := b.family("Esperança", "Red", 8, false)

	// Updating a family under its existing name must not self-collide.
	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{ID: &fam.ID, Name: "Esperança", Color: "Red", Capacity: 8},
	}}, b.st)

	if codes(errs)[roster.CodeDuplicateName] != 0 {
		t.Errorf("errors = %+v, own name must not collide", errs)
	}
}

func TestValidate_InvalidColor(t *testing.T) {
	b := newState()

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "Esperança", Color: "Chartreuse", Capacity: 8},
	}}, b.st)

	if codes(errs)[roster.CodeInvalidColor] != 1 {
		t.Errorf("errors = %+v, want INVALID_COLOR", errs)
	}
}

func TestValidate_CapacityBoundary(t *testing.T) {
	b := newState()
	at := make([]primitive.ObjectID, 3)
	for i := range at {
		at[i] = b.camper(models.GenderMale, "")
	}

	// Exactly at capacity is fine.
	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "Esperança", Color: "Blue", Capacity: 3, Members: at},
	}}, b.st)
	if codes(errs)[roster.CodeCapacityExceeded] != 0 {
		t.Errorf("errors at capacity = %+v, want none", errs)
	}

	// One over is an error.
	over := append(at, b.camper(models.GenderFemale, ""))
	errs, _ = validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "Esperança", Color: "Blue", Capacity: 3, Members: over},
	}}, b.st)
	if codes(errs)[roster.CodeCapacityExceeded] != 1 {
		t.Errorf("errors over capacity = %+v, want CAPACITY_EXCEEDED", errs)
	}
}

func TestValidate_MemberReferenceErrors(t *testing.T) {
	b := newState()

	unknown := primitive.NewObjectID()

	foreign := primitive.NewObjectID()
	b.st.regs[foreign] = models.Registration{
		ID:        foreign,
		RetreatID: primitive.NewObjectID(),
		Enabled:   true,
		Status:    models.StatusConfirmed,
	}

	pending := primitive.NewObjectID()
	b.st.regs[pending] = models.Registration{
		ID:        pending,
		RetreatID: b.retreat.ID,
		Enabled:   true,
		Status:    models.StatusPending,
	}

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
		Name:     "Esperança",
		Color:    "Blue",
		Capacity: 8,
		Members:  []primitive.ObjectID{unknown, foreign, pending},
	}}}, b.st)

	got := codes(errs)
	if got[roster.CodeUnknownRegistration] != 1 {
		t.Errorf("want UNKNOWN_REGISTRATION, got %+v", errs)
	}
	if got[roster.CodeWrongRetreat] != 1 {
		t.Errorf("want WRONG_RETREAT, got %+v", errs)
	}
	if got[roster.CodeInvalidMember] != 1 {
		t.Errorf("want INVALID_MEMBER for pending status, got %+v", errs)
	}
}

func TestValidate_MemberInTwoFamilies(t *testing.T) {
	b := newState()
	m := b.camper(models.GenderMale, "")

	errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{
		{Name: "Esperança", Color: "Blue", Capacity: 8, Members: []primitive.ObjectID{m}},
		{Name: "Paz", Color: "Green", Capacity: 8, Members: []primitive.ObjectID{m}},
	}}, b.st)

	if codes(errs)[roster.CodeDuplicateRegistration] != 2 {
		t.Errorf("errors = %+v, want DUPLICATE_REGISTRATION in both families", errs)
	}
}

func TestValidate_GodparentRules(t *testing.T) {
	b := newState()
	man := b.camper(models.GenderMale, "")
	woman := b.camper(models.GenderFemale, "")
	outsider := b.camper(models.GenderMale, "")

	t.Run("non-member nominee", func(t *testing.T) {
		errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
			Name: "Esperança", Color: "Blue", Capacity: 8,
			Members:    []primitive.ObjectID{man, woman},
			Godfathers: []primitive.ObjectID{outsider},
		}}}, b.st)
		if codes(errs)[roster.CodeInvalidPadrinho] != 1 {
			t.Errorf("errors = %+v, want INVALID_PADRINHO", errs)
		}
	})

	t.Run("wrong gender", func(t *testing.T) {
		errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
			Name: "Esperança", Color: "Blue", Capacity: 8,
			Members:    []primitive.ObjectID{man, woman},
			Godfathers: []primitive.ObjectID{woman},
			Godmothers: []primitive.ObjectID{man},
		}}}, b.st)
		if codes(errs)[roster.CodeInvalidPadrinhoGender] != 2 {
			t.Errorf("errors = %+v, want INVALID_PADRINHO_GENDER twice", errs)
		}
	})

	t.Run("both roles at once", func(t *testing.T) {
		errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
			Name: "Esperança", Color: "Blue", Capacity: 8,
			Members:    []primitive.ObjectID{man},
			Godfathers: []primitive.ObjectID{man},
			Godmothers: []primitive.ObjectID{man},
		}}}, b.st)
		if codes(errs)[roster.CodePadrinhoConflict] != 1 {
			t.Errorf("errors = %+v, want PADRINHO_CONFLICT", errs)
		}
	})

	t.Run("too many godfathers", func(t *testing.T) {
		men := []primitive.ObjectID{man, b.camper(models.GenderMale, ""), b.camper(models.GenderMale, "")}
		errs, _ := validate(b.retreat, Command{Snapshots: []Snapshot{{
			Name: "Esperança", Color: "Blue", Capacity: 8,
			Members:    men,
			Godfathers: men,
		}}}, b.st)
		if codes(errs)[roster.CodeTooManyPadrinhos] != 1 {
			t.Errorf("errors = %+v, want TOO_MANY_PADRINHOS", errs)
		}
	})
}

func TestValidate_Warnings(t *testing.T) {
	b := newState()
	a := b.camper(models.GenderMale, "Recife")
	c := b.camper(models.GenderFemale, "recife") // same city, different case

	_, warns := validate(b.retreat, Command{Snapshots: []Snapshot{{
		Name: "Esperança", Color: "Blue", Capacity: 8,
		Members: []primitive.ObjectID{a, c},
	}}}, b.st)

	got := codes(warns)
	if got[roster.CodeMissingGodparents] != 1 {
		t.Errorf("warnings = %+v, want MISSING_GODPARENTS", warns)
	}
	if got[roster.CodeSameCity] != 1 {
		t.Errorf("warnings = %+v, want SAME_CITY (case-folded)", warns)
	}
}

func TestGodparentsValidate_UnknownAndLockedFamily(t *testing.T) {
	b := newState()
	g := &Godparents{}

	errs, _ := g.Validate(b.retreat, GodparentsCommand{FamilyID: primitive.NewObjectID()},
		&GodparentsState{regs: map[primitive.ObjectID]models.Registration{}})
	if codes(errs)[roster.CodeUnknownFamily] != 1 {
		t.Errorf("errors = %+v, want UNKNOWN_FAMILY", errs)
	}

	locked := b.family("Paz", "Green", 8, true)
	errs, _ = g.Validate(b.retreat, GodparentsCommand{FamilyID: locked.ID},
		&GodparentsState{family: &locked, regs: map[primitive.ObjectID]models.Registration{}})
	if codes(errs)[roster.CodeFamilyLocked] != 1 {
		t.Errorf("errors = %+v, want FAMILY_LOCKED", errs)
	}
}

func TestGodparentsValidate_RolesAgainstExistingMembers(t *testing.T) {
	b := newState()
	fam := b.family("Esperança", "Blue", 8, false)
	man := b.camper(models.GenderMale, "")
	woman := b.camper(models.GenderFemale, "")

	st := &GodparentsState{
		family: &fam,
		members: []models.FamilyMember{
			{FamilyID: fam.ID, RegistrationID: man, Position: 1, Role: models.FamilyRoleMember},
			{FamilyID: fam.ID, RegistrationID: woman, Position: 2, Role: models.FamilyRoleMember},
		},
		regs: b.st.regs,
	}

	g := &Godparents{}
	errs, warns := g.Validate(b.retreat, GodparentsCommand{
		FamilyID:   fam.ID,
		Godfathers: []primitive.ObjectID{man},
		Godmothers: []primitive.ObjectID{woman},
	}, st)

	if len(errs) != 0 {
		t.Errorf("errors = %+v, want none", errs)
	}
	if len(warns) != 0 {
		t.Errorf("warnings = %+v, want none", warns)
	}

	// Clearing every nomination is allowed but advisory.
	_, warns = g.Validate(b.retreat, GodparentsCommand{FamilyID: fam.ID}, st)
	if codes(warns)[roster.CodeMissingGodparents] != 1 {
		t.Errorf("warnings = %+v, want MISSING_GODPARENTS", warns)
	}
}

func TestBuildMembers_RolesAndPositions(t *testing.T) {
	retreatID := primitive.NewObjectID()
	familyID := primitive.NewObjectID()
	gf := primitive.NewObjectID()
	gm := primitive.NewObjectID()
	m := primitive.NewObjectID()

	rows := buildMembers(retreatID, familyID, Snapshot{
		Members:    []primitive.ObjectID{gf, m, gm},
		Godfathers: []primitive.ObjectID{gf},
		Godmothers: []primitive.ObjectID{gm},
	})

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	wantRoles := []models.FamilyRole{models.FamilyRoleGodfather, models.FamilyRoleMember, models.FamilyRoleGodmother}
	for i, row := range rows {
		if row.Position != i+1 {
			t.Errorf("row %d position = %d, want %d", i, row.Position, i+1)
		}
		if row.Role != wantRoles[i] {
			t.Errorf("row %d role = %q, want %q", i, row.Role, wantRoles[i])
		}
	}
}

func TestMembersEqual(t *testing.T) {
	a := primitive.NewObjectID()
	c := primitive.NewObjectID()
	current := []models.FamilyMember{
		{RegistrationID: a, Position: 1, Role: models.FamilyRoleMember},
		{RegistrationID: c, Position: 2, Role: models.FamilyRoleGodmother},
	}

	same := []models.FamilyMember{
		{RegistrationID: a, Position: 1, Role: models.FamilyRoleMember},
		{RegistrationID: c, Position: 2, Role: models.FamilyRoleGodmother},
	}
	if !membersEqual(current, same) {
		t.Error("identical membership reported as different")
	}

	reordered := []models.FamilyMember{
		{RegistrationID: c, Position: 1, Role: models.FamilyRoleGodmother},
		{RegistrationID: a, Position: 2, Role: models.FamilyRoleMember},
	}
	if membersEqual(current, reordered) {
		t.Error("reordered membership reported as equal")
	}

	roleChanged := []models.FamilyMember{
		{RegistrationID: a, Position: 1, Role: models.FamilyRoleGodfather},
		{RegistrationID: c, Position: 2, Role: models.FamilyRoleGodmother},
	}
	if membersEqual(current, roleChanged) {
		t.Error("role change reported as equal")
	}
}
