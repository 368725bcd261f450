// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/retreathub/retreathub/internal/app/roster"
	paymentstore "github.com/retreathub/retreathub/internal/app/store/payments"
	registrationstore "github.com/retreathub/retreathub/internal/app/store/registrations"
	retreatstore "github.com/retreathub/retreathub/internal/app/store/retreats"
	spacestore "github.com/retreathub/retreathub/internal/app/store/spaces"
	"github.com/retreathub/retreathub/internal/app/system/txn"
	"github.com/retreathub/retreathub/internal/app/worker/payments"
)

// paymentConsumer lives for the whole process; Startup launches it and
// Shutdown drains it.
var (
	paymentConsumer *payments.Consumer
	consumerCancel  context.CancelFunc
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. For
// RetreatHub that means launching the payment-confirmation consumer when a
// broker is configured.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AMQPURL == "" {
		logger.Info("no AMQP broker configured; payment consumer disabled")
		return nil
	}

	db := deps.MongoDatabase
	atomic := roster.Runner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return txn.Run(ctx, db, logger, fn)
	})

	processor := &payments.Processor{
		Registrations:   registrationstore.New(db),
		Payments:        paymentstore.New(db),
		Spaces:          spacestore.New(db),
		Retreats:        retreatstore.New(db),
		Atomic:          atomic,
		AutoAssign:      appCfg.AutoAssign,
		EnforceCapacity: appCfg.EnforceCapacity,
		Log:             logger,
	}

	paymentConsumer = &payments.Consumer{
		URL:       appCfg.AMQPURL,
		Queue:     appCfg.PaymentQueue,
		Processor: processor,
		Log:       logger,
	}

	// The startup ctx ends when startup does; the consumer needs its own.
	var consumerCtx context.Context
	consumerCtx, consumerCancel = context.WithCancel(context.Background())
	paymentConsumer.Start(consumerCtx)

	logger.Info("payment consumer started",
		zap.String("queue", appCfg.PaymentQueue),
		zap.Bool("auto_assign", appCfg.AutoAssign),
		zap.Bool("enforce_capacity", appCfg.EnforceCapacity))
	return nil
}
