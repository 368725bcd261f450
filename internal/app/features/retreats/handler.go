// internal/app/features/retreats/handler.go

// Package retreats serves the retreat aggregate endpoints: creation,
// listing, and the per-kind roster lock toggle.
package retreats

import (
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Retreats.
type Handler struct {
	Store *retreatstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a new Retreats handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Store: retreatstore.New(db),
		Log:   logger,
	}
}
