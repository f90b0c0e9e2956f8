package refinecmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
)

const refineLongDesc string = `Rewrite a short prompt into a detailed one suited for image or video
generation. The refined prompt is printed on stdout.

Examples:
  zai refine "a cat on a roof"
  zai generate --kind image "$(zai refine 'a cat on a roof')"`

const refineShortDesc string = "Refine a generation prompt"

type refineCommander struct {
	load cliapp.Loader
}

func NewRefineCmd(load cliapp.Loader) *cobra.Command {
	cmder := &refineCommander{load: load}

	return &cobra.Command{
		Use:   "refine <prompt>",
		Short: refineShortDesc,
		Long:  refineLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}
}

func (c *refineCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	a, cleanup, err := c.load(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Refiner == nil {
		return errors.New("refine is unavailable: configure the text provider credentials")
	}

	refined, err := a.Refiner.Refine(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), refined)
	return nil
}
