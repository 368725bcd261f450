// internal/app/system/txn/txn.go

// Package txn runs multi-document units of work inside a mongo transaction.
// Deployments without replica sets (standalone mongod, some DocumentDB
// tiers) don't support transactions; Run detects that and falls back to
// executing the function directly so local development still works.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a mongo transaction on db's client. On servers
// without transaction support, fn runs without one and a warning is logged;
// the all-or-nothing guarantee is degraded, not the behavior.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		logFallback(log, err)
		return fn(ctx)
	}
	return err
}

func logFallback(log *zap.Logger, err error) {
	if log != nil {
		log.Warn("mongo transactions unsupported; running unit of work without one", zap.Error(err))
	}
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions (standalone mongod, DocumentDB, old servers).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, OperationFailed variants seen in the wild
			return true
		}
	}

	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation") && has("transaction"):
		return true
	}
	return false
}
