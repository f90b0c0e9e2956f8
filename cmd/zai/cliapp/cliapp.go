// Package cliapp holds what the zai subcommands share: service loading and
// terminal rendering.
package cliapp

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/zhouzirui/zai-studio/backend/internal/app"
	"github.com/zhouzirui/zai-studio/backend/internal/config"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Loader builds the services for one command run. The cleanup func must be
// called when the command finishes.
type Loader func(ctx context.Context) (*app.App, func(), error)

// NewLoader returns a Loader that reads .env and the environment. debug is
// read at load time so it can be bound to a persistent flag.
func NewLoader(debug *bool) Loader {
	return func(ctx context.Context) (*app.App, func(), error) {
		return app.Bootstrap(ctx, func(cfg *config.Config) *zap.Logger {
			return logger.NewCLI(*debug || cfg.Log.Debug)
		})
	}
}

// Static returns a Loader that always yields a. Used by tests.
func Static(a *app.App) Loader {
	return func(context.Context) (*app.App, func(), error) {
		return a, func() {}, nil
	}
}

const defaultWidth = 80

// NewRenderer builds a markdown renderer wrapped to the terminal width of w,
// or to 80 columns when w is not a terminal.
func NewRenderer(w io.Writer) (*glamour.TermRenderer, error) {
	width := defaultWidth
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			width = cols - 4
		}
	}
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}
