package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/zai-studio/backend/cmd/zai/cliapp"
	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	chatService "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/service/speech"
)

const chatLongDesc string = `Start an interactive chat session with the text model.

Replies are rendered as markdown once complete. Use --raw to print the reply
as it streams instead.

Commands inside the session:
  /mic    toggle speech dictation
  /help   show this help
  /quit   leave the session

Examples:
  zai chat
  zai chat --persona storyboard --raw`

const chatShortDesc string = "Chat with the assistant"

const sessionHelp = "Commands: /mic toggles dictation, /help shows this help, /quit leaves."

type chatCommander struct {
	load      cliapp.Loader
	personaID string
	raw       bool
}

func NewChatCmd(load cliapp.Loader) *cobra.Command {
	cmder := &chatCommander{load: load}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.personaID, "persona", "p", persona.DefaultID, "Persona to chat with")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies as they stream, without markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	a, cleanup, err := c.load(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Chat == nil {
		return errors.New("chat is unavailable: configure the text provider credentials")
	}

	session, err := a.Chat.CreateSession(ctx, c.personaID)
	if err != nil {
		return fmt.Errorf("could not start session: %w", err)
	}
	defer func() { _ = a.Chat.DeleteSession(context.WithoutCancel(ctx), session.ID()) }()

	out := cmd.OutOrStdout()
	renderer, err := cliapp.NewRenderer(out)
	if err != nil {
		return fmt.Errorf("could not create renderer: %w", err)
	}

	p := session.Persona()
	fmt.Fprintf(out, "%s · %s\n", p.Name, p.Title)
	if turns := session.Transcript(); len(turns) > 0 {
		c.print(out, renderer, turns[0].Text)
	}
	fmt.Fprintln(out, sessionHelp)

	dictation := speech.NewDictation(nil, a.Logger())
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, sessionHelp)
			continue
		case "/mic":
			c.toggleMic(ctx, out, dictation)
			continue
		}

		if pending := dictation.Take(); pending != "" {
			line = pending + " " + line
		}
		c.send(ctx, out, renderer, session, line)
	}
}

func (c *chatCommander) toggleMic(ctx context.Context, out io.Writer, d *speech.Dictation) {
	err := d.Toggle(ctx)
	if errors.Is(err, speech.ErrUnavailable) {
		fmt.Fprintln(out, "Speech recognition is not available in this terminal.")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "Could not toggle dictation: %v\n", err)
		return
	}
	if d.Listening() {
		fmt.Fprintln(out, "Listening...")
	} else {
		fmt.Fprintln(out, "Stopped listening.")
	}
}

func (c *chatCommander) send(ctx context.Context, out io.Writer, renderer *glamour.TermRenderer, session *chatService.Session, text string) {
	var onSnapshot func(string)
	printed := 0
	if c.raw {
		onSnapshot = func(snapshot string) {
			fmt.Fprint(out, snapshot[printed:])
			printed = len(snapshot)
		}
	}

	turn, err := session.Send(ctx, text, onSnapshot)
	if c.raw {
		if printed > 0 {
			fmt.Fprintln(out)
		}
		if err != nil {
			fmt.Fprintln(out, turn.Text)
		}
		return
	}

	var streamErr *chatService.StreamError
	if errors.As(err, &streamErr) && streamErr.Partial != "" {
		c.print(out, renderer, streamErr.Partial)
	}
	if err != nil && turn.Text == "" {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	c.print(out, renderer, turn.Text)
}

func (c *chatCommander) print(out io.Writer, renderer *glamour.TermRenderer, text string) {
	if c.raw {
		fmt.Fprintln(out, text)
		return
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprint(out, rendered)
}
