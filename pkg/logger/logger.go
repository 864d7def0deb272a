// Package logger builds the structured logger every barrel component
// shares. It exists separately from the packages that use it so tests and
// the CLI can each construct one without pulling in zap's full
// configuration surface themselves.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production-configured, JSON-encoded logger tagged with
// service. The engine hands it to the keydir and compaction packages and
// uses it for its own structured Warnw/Errorw calls; compaction logs
// through it with Debugw.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// zap's own production config failing to build means the process
		// has no usable stderr; fall back to a logger that still works.
		log = zap.NewNop()
	}

	return log.With(zap.String("service", service)).Sugar()
}

// NewNop returns a logger that discards everything, for tests and
// embedders that don't want barrel's log output mixed into their own.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
