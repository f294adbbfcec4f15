package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/petasbytes/shop-agent/internal/assistant"
)

const defaultWrapWidth = 76

var (
	userLabel      = color.New(color.FgHiBlue, color.Bold)
	assistantLabel = color.New(color.FgHiMagenta, color.Bold)
	failedLabel    = color.New(color.FgRed)
)

type chatOptions struct {
	*globalOptions
	ConversationID string
	Plain          bool
	Width          int
}

func newChatCommand(g *globalOptions) *cobra.Command {
	o := &chatOptions{globalOptions: g, Width: defaultWrapWidth}
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with 小美 in the terminal",
		Long: heredoc.Doc(`
			Chat with 小美 in the terminal.

			Without arguments an interactive session starts; type /exit or
			press Ctrl-D to leave. With a message argument the message is sent
			once and the answer printed.
		`),
		Example: heredoc.Doc(`
			# Interactive session
			shop-agent chat

			# One message
			shop-agent chat "有賣培根蛋餅嗎"
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&o.ConversationID, "conversation", "", "Conversation ID; a new one is generated when empty.")
	cmd.Flags().BoolVar(&o.Plain, "plain", false, "Print answers as plain text instead of rendered markdown.")
	cmd.Flags().IntVar(&o.Width, "width", o.Width, "Wrap width for rendered answers.")
	return cmd
}

func (o *chatOptions) Run(ctx context.Context, args []string) error {
	if o.ConversationID == "" {
		o.ConversationID = "cli-" + uuid.NewString()
	}
	deps, err := openShop(ctx, o.cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	reg, err := deps.registry()
	if err != nil {
		return err
	}
	a, err := newAssistant(ctx, o.cfg, reg)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		return o.send(ctx, a, strings.Join(args, " "))
	}
	return o.repl(ctx, a)
}

func (o *chatOptions) repl(ctx context.Context, a *assistant.Assistant) error {
	out := o.streams.Out
	fmt.Fprintln(out, "和小美聊天 (/exit 離開)")

	// Scan on a separate goroutine so Ctrl-C is noticed while waiting for input.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(o.streams.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		userLabel.Fprint(out, "你: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}
		if err := o.send(ctx, a, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (o *chatOptions) send(ctx context.Context, a *assistant.Assistant, text string) error {
	reply, err := a.Handle(ctx, assistant.Inbound{ConversationID: o.ConversationID, Text: text})
	if errors.Is(err, assistant.ErrEmptyText) {
		return errors.New("message is empty")
	}
	if err != nil {
		return err
	}
	out := o.streams.Out
	assistantLabel.Fprintln(out, "小美")
	for _, t := range reply.Texts {
		fmt.Fprintln(out, o.render(t))
	}
	if reply.Failed {
		failedLabel.Fprintln(out, "(interaction failed; see log)")
	}
	return nil
}

// render formats markdown answers for the terminal. Rendering is skipped when
// colour is off, which covers pipes and NO_COLOR.
func (o *chatOptions) render(text string) string {
	if o.Plain || color.NoColor {
		return text
	}
	width := o.Width
	if width <= 0 {
		width = defaultWrapWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
