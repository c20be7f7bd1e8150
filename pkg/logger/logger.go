/**
 * @description
 * This package builds the structured logger shared by every component of the
 * schoolfees-service. Log lines carry a `component` field plus event-specific
 * fields (endpoint, outcome, reason, reference, user_id) so they can be filtered
 * the same way across the HTTP, settlement and background-job paths.
 *
 * @dependencies
 * - go.uber.org/zap: Structured, leveled logging.
 */
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger, or a human-readable development logger when dev is true.
func New(dev bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if dev {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "msg"
	return config.Build()
}

// IsDevelopment reports whether an APP_ENV value selects the development logger.
func IsDevelopment(appEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Component returns a child logger tagged with the given component name.
func Component(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("component", name))
}
