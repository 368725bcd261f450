// internal/app/roster/tents/tents_test.go
package tents

import (
	"testing"

	"github.com/retreathub/retreathub/internal/app/roster"
	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestState() (*models.Retreat, *State) {
	return &models.Retreat{ID: primitive.NewObjectID(), Name: "Spring Retreat"},
		&State{
			groups: map[primitive.ObjectID]models.Tent{},
			links:  map[primitive.ObjectID][]models.TentAssignment{},
			regs:   map[primitive.ObjectID]models.Registration{},
		}
}

func addCamper(st *State, retreatID primitive.ObjectID, gender models.Gender) primitive.ObjectID {
	id := primitive.NewObjectID()
	st.regs[id] = models.Registration{
		ID:        id,
		RetreatID: retreatID,
		Gender:    gender,
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

func TestValidate_CleanTent(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	members := []primitive.ObjectID{
		addCamper(st, retreat.ID, models.GenderMale),
		addCamper(st, retreat.ID, models.GenderMale),
	}
	errs, warns := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 1, Category: models.GenderMale, MinSize: 2, MaxSize: 6, Members: members,
	}}}, st)

	if len(errs) != 0 || len(warns) != 0 {
		t.Fatalf("errs = %+v, warns = %+v, want clean", errs, warns)
	}
}

func TestValidate_CategoryMismatch(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	woman := addCamper(st, retreat.ID, models.GenderFemale)
	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 1, Category: models.GenderMale, MaxSize: 6,
		Members: []primitive.ObjectID{woman},
	}}}, st)

	if codes(errs)[roster.CodeWrongCategory] != 1 {
		t.Errorf("errs = %+v, want WRONG_CATEGORY", errs)
	}
}

func TestValidate_OccupancyBounds(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	members := []primitive.ObjectID{
		addCamper(st, retreat.ID, models.GenderFemale),
		addCamper(st, retreat.ID, models.GenderFemale),
		addCamper(st, retreat.ID, models.GenderFemale),
	}

	// Over max blocks.
	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 2, Category: models.GenderFemale, MaxSize: 2, Members: members,
	}}}, st)
	if codes(errs)[roster.CodeCapacityExceeded] != 1 {
		t.Errorf("errs = %+v, want CAPACITY_EXCEEDED", errs)
	}

	// Under min only warns.
	errs, warns := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 2, Category: models.GenderFemale, MinSize: 4, MaxSize: 8, Members: members,
	}}}, st)
	if len(errs) != 0 {
		t.Errorf("errs = %+v, want none for under-min", errs)
	}
	if codes(warns)[roster.CodeBelowMinimum] != 1 {
		t.Errorf("warns = %+v, want BELOW_MINIMUM", warns)
	}

	// An emptied tent raises no minimum warning.
	_, warns = r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 2, Category: models.GenderFemale, MinSize: 4, MaxSize: 8,
	}}}, st)
	if len(warns) != 0 {
		t.Errorf("warns = %+v, empty tent must not warn", warns)
	}
}

func TestValidate_DuplicateNumber(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	existing := models.Tent{ID: primitive.NewObjectID(), RetreatID: retreat.ID, Number: 3, Category: models.GenderMale}
	st.groups[existing.ID] = existing

	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 3, Category: models.GenderMale, MaxSize: 6,
	}}}, st)
	if codes(errs)[roster.CodeDuplicateNumber] != 1 {
		t.Errorf("errs = %+v, want DUPLICATE_NUMBER", errs)
	}

	// Updating the existing tent under its own number is fine.
	errs, _ = r.Validate(retreat, Command{Snapshots: []Snapshot{{
		ID: &existing.ID, Number: 3, Category: models.GenderMale, MaxSize: 6,
	}}}, st)
	if codes(errs)[roster.CodeDuplicateNumber] != 0 {
		t.Errorf("errs = %+v, own number must not collide", errs)
	}
}

func TestValidate_LockedTent(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	locked := models.Tent{ID: primitive.NewObjectID(), RetreatID: retreat.ID, Number: 4, Category: models.GenderMale, Locked: true}
	st.groups[locked.ID] = locked
	m := addCamper(st, retreat.ID, models.GenderMale)

	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		ID: &locked.ID, Number: 4, Category: models.GenderMale, MaxSize: 6,
		Members: []primitive.ObjectID{m},
	}}}, st)
	if codes(errs)[roster.CodeTentLocked] != 1 {
		t.Errorf("errs = %+v, want TENT_LOCKED", errs)
	}
}

func TestValidate_LockedTentRejectsAnySnapshot(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	locked := models.Tent{ID: primitive.NewObjectID(), RetreatID: retreat.ID, Number: 4, Category: models.GenderMale, Locked: true}
	st.groups[locked.ID] = locked
	m := addCamper(st, retreat.ID, models.GenderMale)
	st.links[locked.ID] = []models.TentAssignment{
		{TentID: locked.ID, RegistrationID: m, Position: 1},
	}

	// Emptying a locked tent must not slip past the lock.
	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		ID: &locked.ID, Number: 4, Category: models.GenderMale, MaxSize: 6,
	}}}, st)
	if codes(errs)[roster.CodeTentLocked] != 1 {
		t.Errorf("errs = %+v, want TENT_LOCKED for emptied tent", errs)
	}

	// Attribute-only changes are blocked too.
	errs, _ = r.Validate(retreat, Command{Snapshots: []Snapshot{{
		ID: &locked.ID, Number: 14, Category: models.GenderMale, MaxSize: 8,
	}}}, st)
	if codes(errs)[roster.CodeTentLocked] != 1 {
		t.Errorf("errs = %+v, want TENT_LOCKED for attribute change", errs)
	}
}

func TestValidate_CamperHeldByUntouchedTent(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	other := models.Tent{ID: primitive.NewObjectID(), RetreatID: retreat.ID, Number: 9, Category: models.GenderMale}
	st.groups[other.ID] = other
	m := addCamper(st, retreat.ID, models.GenderMale)
	st.links[other.ID] = []models.TentAssignment{
		{TentID: other.ID, RegistrationID: m, Position: 1},
	}

	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{{
		Number: 10, Category: models.GenderMale, MaxSize: 6, Members: []primitive.ObjectID{m},
	}}}, st)
	if codes(errs)[roster.CodeDuplicatedMember] != 1 {
		t.Errorf("errs = %+v, want DUPLICATED_MEMBER against untouched tent", errs)
	}

	// Moving the camper is fine when the source tent is in the request.
	errs, _ = r.Validate(retreat, Command{Snapshots: []Snapshot{
		{ID: &other.ID, Number: 9, Category: models.GenderMale, MaxSize: 6},
		{Number: 10, Category: models.GenderMale, MaxSize: 6, Members: []primitive.ObjectID{m}},
	}}, st)
	if codes(errs)[roster.CodeDuplicatedMember] != 0 {
		t.Errorf("errs = %+v, move within one request must pass", errs)
	}
}

func TestValidate_UnknownTentAndForeignCamper(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	phantom := primitive.NewObjectID()
	foreign := addCamper(st, primitive.NewObjectID(), models.GenderMale)

	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{
		{ID: &phantom, Number: 5, Category: models.GenderMale},
		{Number: 6, Category: models.GenderMale, MaxSize: 6, Members: []primitive.ObjectID{foreign}},
	}}, st)

	got := codes(errs)
	if got[roster.CodeUnknownTent] != 1 {
		t.Errorf("errs = %+v, want UNKNOWN_TENT", errs)
	}
	if got[roster.CodeWrongRetreat] != 1 {
		t.Errorf("errs = %+v, want WRONG_RETREAT", errs)
	}
}

func TestValidate_CamperInTwoTents(t *testing.T) {
	retreat, st := newTestState()
	r := &Roster{}

	m := addCamper(st, retreat.ID, models.GenderMale)
	errs, _ := r.Validate(retreat, Command{Snapshots: []Snapshot{
		{Number: 7, Category: models.GenderMale, MaxSize: 6, Members: []primitive.ObjectID{m}},
		{Number: 8, Category: models.GenderMale, MaxSize: 6, Members: []primitive.ObjectID{m}},
	}}, st)

	if codes(errs)[roster.CodeDuplicatedMember] != 2 {
		t.Errorf("errs = %+v, want DUPLICATED_MEMBER in both tents", errs)
	}
}
