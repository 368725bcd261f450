// internal/app/features/families/handler.go

// Package families serves the family roster endpoints: listing, the
// snapshot-style roster update, the role-only godparent update, and
// version-gated deletion.
package families

import (
	"github.com/retreathub/retreathub/internal/app/roster"
	famroster "github.com/retreathub/retreathub/internal/app/roster/families"
	familystore "github.com/retreathub/retreathub/internal/app/store/families"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for the family roster.
type Handler struct {
	DB         *mongo.Database
	Engine     *roster.Engine[famroster.Command, *famroster.State, famroster.View]
	Godparents *roster.Engine[famroster.GodparentsCommand, *famroster.GodparentsState, famroster.View]
	Roster     *famroster.Roster
	Retreats   *retreatstore.Store
	Families   *familystore.Store
	Log        *zap.Logger
}

// NewHandler constructs a new family roster handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Engine:     famroster.NewEngine(db, logger),
		Godparents: famroster.NewGodparentsEngine(db, logger),
		Roster:     famroster.NewRoster(db),
		Retreats:   retreatstore.New(db),
		Families:   familystore.New(db),
		Log:        logger,
	}
}
