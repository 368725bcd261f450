// internal/app/roster/families/views.go
package families

import (
	"context"

	"github.com/retreathub/retreathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberView is one family member joined with their registration summary.
type MemberView struct {
	RegistrationID primitive.ObjectID `json:"registration_id"`
	FullName       string             `json:"full_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Gender         models.Gender      `json:"gender"`
	City           string             `json:"city"`
	Position       int                `json:"position"`
	Role           models.FamilyRole  `json:"role"`
}

// View is the per-family summary returned after a commit or on listing.
type View struct {
	ID           primitive.ObjectID `json:"id"`
	Name         string             `json:"name"`
	Color        string             `json:"color"`
	Capacity     int                `json:"capacity"`
	Remaining    int                `json:"remaining"`
	Locked       bool               `json:"locked"`
	Total        int                `json:"total"`
	Male         int                `json:"male"`
	Female       int                `json:"female"`
	HasGodfather bool               `json:"has_godfather"`
	HasGodmother bool               `json:"has_godmother"`
	Members      []MemberView       `json:"members"`
}

// Project re-reads the retreat's families and membership joined with
// registration summaries. Pure read, no side effects.
func (r *Roster) Project(ctx context.Context, retreatID primitive.ObjectID) ([]View, error) {
	groups, err := r.families.ListByRetreat(ctx, retreatID)
	if err != nil {
		return nil, err
	}
	members, err := r.families.ListMembers(ctx, retreatID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.RegistrationID)
	}
	regs, err := r.regs.MapCampersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byFamily := map[primitive.ObjectID][]models.FamilyMember{}
	for _, m := range members {
		byFamily[m.FamilyID] = append(byFamily[m.FamilyID], m)
	}

	views := make([]View, 0, len(groups))
	for _, g := range groups {
		v := View{
			ID:       g.ID,
			Name:     g.Name,
			Color:    g.Color,
			Capacity: g.Capacity,
			Locked:   g.Locked,
			Members:  []MemberView{},
		}
		for _, m := range byFamily[g.ID] {
			reg := regs[m.RegistrationID]
			v.Members = append(v.Members, MemberView{
				RegistrationID: m.RegistrationID,
				FullName:       reg.FullName,
				Email:          reg.Email,
				Phone:          reg.Phone,
				Gender:         reg.Gender,
				City:           reg.City,
				Position:       m.Position,
				Role:           m.Role,
			})
			v.Total++
			switch reg.Gender {
			case models.GenderMale:
				v.Male++
			case models.GenderFemale:
				v.Female++
			}
			switch m.Role {
			case models.FamilyRoleGodfather:
				v.HasGodfather = true
			case models.FamilyRoleGodmother:
				v.HasGodmother = true
			}
		}
		if v.Remaining = g.Capacity - v.Total; v.Remaining < 0 {
			v.Remaining = 0
		}
		views = append(views, v)
	}
	return views, nil
}
