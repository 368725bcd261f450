// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for RetreatHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, payment_queue, etc.
//   - Environment variables: RETREATHUB_MONGO_URI, RETREATHUB_PAYMENT_QUEUE, etc.
//   - Command-line flags: --mongo_uri, --payment_queue, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "retreathub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// API token authentication
	{Name: "admin_token_hash", Default: "", Desc: "bcrypt hash of the admin API token"},
	{Name: "viewer_token_hash", Default: "", Desc: "bcrypt hash of the viewer (read-only) API token"},

	// Payment broker
	{Name: "amqp_url", Default: "", Desc: "AMQP broker URL; empty disables the payment consumer"},
	{Name: "payment_queue", Default: "payment.confirmed", Desc: "Queue carrying payment-confirmation events"},

	// Auto-assignment after payment confirmation
	{Name: "auto_assign", Default: true, Desc: "Assign confirmed volunteers to their preferred service space"},
	{Name: "enforce_capacity", Default: true, Desc: "Respect space max size during auto-assignment"},

	// API throttling
	{Name: "api_rate_limit", Default: 300, Desc: "Requests per client IP per minute on /api; 0 disables"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, RETREATHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RETREATHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		AdminTokenHash:  appValues.String("admin_token_hash"),
		ViewerTokenHash: appValues.String("viewer_token_hash"),

		AMQPURL:      appValues.String("amqp_url"),
		PaymentQueue: appValues.String("payment_queue"),

		AutoAssign:      appValues.Bool("auto_assign"),
		EnforceCapacity: appValues.Bool("enforce_capacity"),

		APIRateLimit: appValues.Int("api_rate_limit"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// RetreatHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect, and refuses to start a
// production deployment without an admin token.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" && appCfg.AdminTokenHash == "" {
		return fmt.Errorf("admin_token_hash is required in prod")
	}

	if appCfg.AMQPURL != "" && appCfg.PaymentQueue == "" {
		return fmt.Errorf("payment_queue is required when amqp_url is set")
	}

	if appCfg.APIRateLimit < 0 {
		return fmt.Errorf("api_rate_limit must not be negative")
	}

	return nil
}
