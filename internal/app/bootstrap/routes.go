// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	familiesfeature "github.com/retreathub/retreathub/internal/app/features/families"
	healthfeature "github.com/retreathub/retreathub/internal/app/features/health"
	registrationsfeature "github.com/retreathub/retreathub/internal/app/features/registrations"
	retreatsfeature "github.com/retreathub/retreathub/internal/app/features/retreats"
	spacesfeature "github.com/retreathub/retreathub/internal/app/features/spaces"
	tentsfeature "github.com/retreathub/retreathub/internal/app/features/tents"
	"github.com/retreathub/retreathub/internal/app/system/auth"
	"github.com/retreathub/retreathub/internal/app/system/ratelimit"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// RetreatHub is a JSON API. The auth middleware resolves the bearer token
// into a principal for every request; the role gates live on the feature
// routers, so /health and /metrics stay open for probes and scrapes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier := auth.NewVerifier(appCfg.AdminTokenHash, appCfg.ViewerTokenHash, logger)

	r := chi.NewRouter()
	r.Use(verifier.LoadPrincipal)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Retreat lifecycle plus the per-retreat rosters and registration
	// intake, all hung off /api/retreats/{id} in one tree.
	retreatsHandler := retreatsfeature.NewHandler(deps.MongoDatabase, logger)
	familiesHandler := familiesfeature.NewHandler(deps.MongoDatabase, logger)
	tentsHandler := tentsfeature.NewHandler(deps.MongoDatabase, logger)
	spacesHandler := spacesfeature.NewHandler(deps.MongoDatabase, logger)
	registrationsHandler := registrationsfeature.NewHandler(deps.MongoDatabase, logger)

	r.Group(func(r chi.Router) {
		if appCfg.APIRateLimit > 0 {
			r.Use(ratelimit.New(appCfg.APIRateLimit, time.Minute).Middleware)
		}
		r.Mount("/api/retreats", retreatsfeature.Routes(retreatsHandler, func(r chi.Router) {
			r.Mount("/families", familiesfeature.Routes(familiesHandler))
			r.Mount("/tents", tentsfeature.Routes(tentsHandler))
			r.Mount("/spaces", spacesfeature.Routes(spacesHandler))
			r.Mount("/registrations", registrationsfeature.CamperRoutes(registrationsHandler))
			r.Mount("/service-registrations", registrationsfeature.ServiceRoutes(registrationsHandler))
		}))
	})

	return r, nil
}
