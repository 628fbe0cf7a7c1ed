// Package logging builds the process-wide zap.Logger, adapted from the
// sms-gateway example's internal/observability package: JSON structured output in
// production, colorized console output in development.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger. GO_ENV=development switches to a
// human-readable console encoder; anything else gets JSON on stdout.
func New() (*zap.Logger, error) {
	if os.Getenv("GO_ENV") == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
