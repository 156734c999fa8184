package match

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger atomic.Pointer[zap.Logger]

func init() {
	defaultLogger.Store(newDefaultLogger())
}

func newDefaultLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func logger() *zap.Logger {
	return defaultLogger.Load()
}

// SetLogger allows setting a custom logger. A nil logger disables logging.
// It is safe to call while the engine is running.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger.Store(l)
}
