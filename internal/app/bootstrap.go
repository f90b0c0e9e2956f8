package app

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/telemetry"
)

// LoggerFactory builds the process logger once configuration is known.
type LoggerFactory func(cfg *config.Config) *zap.Logger

// Bootstrap loads .env and configuration, installs the global logger and
// tracer, then builds the services. The returned cleanup closes everything
// in reverse order.
func Bootstrap(ctx context.Context, newLogger LoggerFactory) (*App, func(), error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log := logger.OrNop(newLogger(cfg))
	zap.ReplaceGlobals(log)
	if envErr != nil {
		log.Debug("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Disable:     !cfg.Telemetry.Enabled,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, err
	}

	a, err := New(ctx, cfg, log)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close services", zap.Error(err))
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
		_ = log.Sync()
	}
	return a, cleanup, nil
}

// Logger returns the logger services were built with.
func (a *App) Logger() *zap.Logger { return logger.OrNop(a.logger) }
