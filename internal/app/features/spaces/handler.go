// internal/app/features/spaces/handler.go

// Package spaces serves the service space roster endpoints: listing, the
// snapshot roster update with leadership roles, and version-gated deletion.
package spaces

import (
	"github.com/retreathub/retreathub/internal/app/roster"
	spaceroster "github.com/retreathub/retreathub/internal/app/roster/spaces"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	spacestore "github.com/retreathub/retreathub/internal/app/store/spaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for the service space roster.
type Handler struct {
	DB       *mongo.Database
	Engine   *roster.Engine[spaceroster.Command, *spaceroster.State, spaceroster.View]
	Roster   *spaceroster.Roster
	Retreats *retreatstore.Store
	Spaces   *spacestore.Store
	Log      *zap.Logger
}

// NewHandler constructs a new service space handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Engine:   spaceroster.NewEngine(db, logger),
		Roster:   spaceroster.NewRoster(db),
		Retreats: retreatstore.New(db),
		Spaces:   spacestore.New(db),
		Log:      logger,
	}
}
