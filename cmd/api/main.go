package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/config"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.Bootstrap(ctx, func(cfg *config.Config) *zap.Logger {
		return logger.New(cfg.Log.Debug)
	})
	if err != nil {
		logger.New(false).Fatal("failed to start", zap.Error(err))
	}
	defer cleanup()

	if err := application.Serve(ctx); err != nil {
		application.Logger().Error("server error", zap.Error(err))
	}
}
