package dflwa

import (
	"go.uber.org/zap"
)

// NewLogger is an fx provider for the application logger. Logs are emitted
// as JSON on stdout where CloudWatch picks them up; the level comes from
// DF_LOG_LEVEL.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	return cfg.Build()
}
