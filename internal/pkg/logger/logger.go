package logger

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/env"
)

var (
	global *zap.Logger
	mu     sync.RWMutex
)

// New builds a logger for the current environment: human readable in dev,
// JSON otherwise.
func New() (*zap.Logger, error) {
	if env.IsDev() {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Setup installs the process-wide logger.
func Setup() *zap.Logger {
	l, err := New()
	if err != nil {
		l = zap.NewExample()
		l.Warn("falling back to example logger", zap.Error(err))
	}
	Set(l)
	return l
}

// Set replaces the process-wide logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// L returns the process-wide logger, a no-op logger before Setup.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return zap.NewNop()
	}
	return global
}
