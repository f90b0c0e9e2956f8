package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/model/media"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
)

const generateLongDesc string = `Generate an image or a video from a prompt and write it to a file.

Progress messages are printed on stderr while a video renders. Without
--out the file is named after the stored result.

Examples:
  zai generate "a lighthouse at dusk"
  zai generate --kind video --out clip.mp4 "waves rolling onto a beach"`

const generateShortDesc string = "Generate an image or video"

type generateCommander struct {
	load cliapp.Loader
	kind string
	out  string
}

func NewGenerateCmd(load cliapp.Loader) *cobra.Command {
	cmder := &generateCommander{load: load}

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.kind, "kind", "k", string(media.KindImage), "Media kind: image or video")
	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Output file path")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	kind := media.Kind(strings.ToLower(c.kind))
	if !kind.Valid() {
		return fmt.Errorf("invalid --kind %q: expected image or video", c.kind)
	}

	a, cleanup, err := c.load(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ws := a.Media.CreateWorkspace(ctx)
	defer func() { _ = a.Media.DeleteWorkspace(context.WithoutCancel(ctx), ws.ID()) }()

	stderr := cmd.ErrOrStderr()
	result, err := ws.Generate(ctx, prompt, kind, func(message string) {
		fmt.Fprintln(stderr, message)
	})
	if err != nil {
		return err
	}
	if result.Status != media.StatusReady {
		return errors.New(result.Message)
	}

	blob, err := a.Media.Store().Get(ctx, storage.Locator(result.Locator))
	if err != nil {
		return fmt.Errorf("could not read generated media: %w", err)
	}

	path := c.out
	if path == "" {
		path = result.Locator + extension(blob.ContentType)
	}
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %d bytes)\n", path, blob.ContentType, len(blob.Data))
	return nil
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
