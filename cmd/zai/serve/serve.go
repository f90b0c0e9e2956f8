package servecmder

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
)

const serveShortDesc string = "Start the HTTP API server"

func NewServeCmd(load cliapp.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long: `Start the HTTP API server, the same as the api binary.

The listen address comes from PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), load)
		},
	}
}

func run(ctx context.Context, load cliapp.Loader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := load(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.Serve(ctx)
}
