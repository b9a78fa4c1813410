package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/helpdesk/internal/agent"
	"github.com/ashureev/helpdesk/internal/ticket"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message to the agent and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAgentClient()
		text := strings.Join(args, " ")
		reply, err := client.SendMessage(cmd.Context(), text)
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(agent.FriendlyReply(err, client.IsConfigured()), raw))
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(reply, raw))
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the support agent.

Commands:
  /new            start a new conversation
  /ticket [text]  file an incident (default: your last message)
  /quit           leave`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	s := &chatSession{
		agent:   newAgentClient(),
		tickets: newTicketClient(),
		in:      cmd.InOrStdin(),
		out:     cmd.OutOrStdout(),
		plain:   raw,
	}
	return s.run(cmd.Context())
}

type sender interface {
	SendMessage(ctx context.Context, text string) (string, error)
	ResetSession()
	IsConfigured() bool
}

type filer interface {
	File(ctx context.Context, text string, o ticket.Overrides) (ticket.Result, error)
}

// chatSession is a line-oriented chat over in and out.
type chatSession struct {
	agent   sender
	tickets filer
	in      io.Reader
	out     io.Writer
	plain   bool

	lastUserText string
}

func (s *chatSession) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.print(agent.WelcomeMessage)
	if !s.agent.IsConfigured() {
		s.print(agent.SetupRequiredReply)
	}

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if done := s.handle(ctx, scanner.Text()); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// handle processes one input line and reports whether the session is over.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	text := strings.TrimSpace(line)
	switch {
	case text == "":
		return false
	case text == "/quit" || text == "/exit":
		return true
	case text == "/new":
		s.agent.ResetSession()
		s.lastUserText = ""
		s.print("Started a new conversation.")
		return false
	case text == "/ticket" || strings.HasPrefix(text, "/ticket "):
		s.fileTicket(ctx, strings.TrimSpace(strings.TrimPrefix(text, "/ticket")))
		return false
	}

	s.lastUserText = text
	reply, err := s.agent.SendMessage(ctx, text)
	if err != nil {
		s.print(agent.FriendlyReply(err, s.agent.IsConfigured()))
		return false
	}
	s.print(reply)
	return false
}

func (s *chatSession) fileTicket(ctx context.Context, text string) {
	if text == "" {
		text = s.lastUserText
	}
	if text == "" {
		s.print("Describe the issue first, or use `/ticket <description>`.")
		return
	}
	res, _ := s.tickets.File(ctx, text, ticket.Overrides{})
	s.print(res.Text)
}

func (s *chatSession) print(text string) {
	fmt.Fprint(s.out, renderMarkdown(text, s.plain))
}
