// internal/app/features/tents/handler.go

// Package tents serves the tent roster endpoints: listing, the snapshot
// roster update, and version-gated deletion.
package tents

import (
	"github.com/retreathub/retreathub/internal/app/roster"
	tentroster "github.com/retreathub/retreathub/internal/app/roster/tents"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	tentstore "github.com/retreathub/retreathub/internal/app/store/tents"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for the tent roster.
type Handler struct {
	DB       *mongo.Database
	Engine   *roster.Engine[tentroster.Command, *tentroster.State, tentroster.View]
	Roster   *tentroster.Roster
	Retreats *retreatstore.Store
	Tents    *tentstore.Store
	Log      *zap.Logger
}

// NewHandler constructs a new tent roster handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Engine:   tentroster.NewEngine(db, logger),
		Roster:   tentroster.NewRoster(db),
		Retreats: retreatstore.New(db),
		Tents:    tentstore.New(db),
		Log:      logger,
	}
}
