// internal/app/features/registrations/handler.go

// Package registrations serves participant intake: camper and volunteer
// registration creation, listing, and status transitions.
package registrations

import (
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for registrations.
type Handler struct {
	Store    *registrationstore.Store
	Retreats *retreatstore.Store
	Log      *zap.Logger
}

// NewHandler constructs a registrations handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    registrationstore.New(db),
		Retreats: retreatstore.New(db),
		Log:      logger,
	}
}
