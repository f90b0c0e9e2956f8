// Command zai is the terminal client for ZAI Studio.
//
// Usage:
//
//	zai chat [--persona id] [--raw]
//	zai refine <prompt>
//	zai generate [--kind image|video] [--out file] <prompt>
//	zai serve
//
// Configuration is read from the environment and an optional .env file, the
// same as the API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/chat"
	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/cmd/zai/generate"
	"github.com/zhouzirui/zai-studio/backend/cmd/zai/refine"
	"github.com/zhouzirui/zai-studio/backend/cmd/zai/serve"
)

func newRootCmd() *cobra.Command {
	var debug bool
	load := cliapp.NewLoader(&debug)

	root := &cobra.Command{
		Use:           "zai",
		Short:         "Chat, refine prompts and generate media from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on stderr")

	root.AddCommand(
		chatcmder.NewChatCmd(load),
		refinecmder.NewRefineCmd(load),
		generatecmder.NewGenerateCmd(load),
		servecmder.NewServeCmd(load),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
