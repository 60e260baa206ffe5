// Package console is a local chat transport: a readline prompt whose lines
// are parsed into commands and run as the configured user.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"

	"taskbot/internal/command"
	"taskbot/internal/conversation"
	"taskbot/pkg/logging"
)

const (
	// ChannelID identifies console messages.
	ChannelID = "console"

	pollInterval = 200 * time.Millisecond
)

const helpText = `Commands (separate several with ';'):
  authenticate                     sign in
  say <text>                       echo text
  userset <name> <value>           set a user variable
  set <name> <value>               set a conversation variable
  get <name>                       read a conversation variable
  dump                             show all variables
  create <title> [-- description]  create a task
  createbau <title> [-- desc]      create a BAU task
  comment <id> <text>              comment on a work item
  assign <id> <person> [comment]   assign a work item
  unassign <id> [comment]          clear the assignee
  help, exit`

// Runner runs decoded commands for an address.
type Runner interface {
	Run(ctx context.Context, addr conversation.Address, cmds []command.Command, messenger conversation.Messenger) error
}

// PendingChecker reports whether a user has a sign-in in flight.
type PendingChecker interface {
	Pending(userID string) bool
}

// Config configures the console.
type Config struct {
	UserID         string
	UserName       string
	ConversationID string
	// Group makes the console behave like a group conversation.
	Group bool
	// Quiet disables the sign-in spinner.
	Quiet       bool
	HistoryFile string
}

// Console runs the prompt.
type Console struct {
	cfg     Config
	runner  Runner
	pending PendingChecker
	printer *printer
}

// New creates a console.
func New(cfg Config, runner Runner, pending PendingChecker) *Console {
	if cfg.UserID == "" {
		cfg.UserID = "console-user"
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = "console"
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(os.TempDir(), ".taskbot_history")
	}
	return &Console{cfg: cfg, runner: runner, pending: pending, printer: &printer{out: os.Stdout}}
}

// Address is the address console messages come from.
func (c *Console) Address() conversation.Address {
	return conversation.Address{
		ChannelID: ChannelID,
		Bot:       conversation.Account{ID: "taskbot", Name: "taskbot"},
		User:      conversation.Account{ID: c.cfg.UserID, Name: c.cfg.UserName},
		Conversation: &conversation.ConversationAccount{
			ID:      c.cfg.ConversationID,
			IsGroup: c.cfg.Group,
		},
	}
}

// Messenger returns the messenger that prints bot replies.
func (c *Console) Messenger() conversation.Messenger { return c.printer }

// SetOutput redirects bot replies.
func (c *Console) SetOutput(w io.Writer) { c.printer.setOutput(w) }

// Run reads lines until EOF, "exit" or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     c.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	c.SetOutput(rl.Stdout())

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	fmt.Fprintf(rl.Stdout(), "Chatting as %s. Type 'help' for commands.\n", c.cfg.UserID)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help", "?":
			fmt.Fprintln(rl.Stdout(), helpText)
			continue
		}

		if err := c.Execute(ctx, input); err != nil {
			fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
		}
		c.waitForSignin(ctx, rl.Stdout())
	}
}

// Execute parses line and runs the resulting commands.
func (c *Console) Execute(ctx context.Context, line string) error {
	cmds := command.DecodeAll(command.ParseLine(line))
	if len(cmds) == 0 {
		return nil
	}
	logging.Debug("Console", "Running %d command(s)", len(cmds))
	return c.runner.Run(ctx, c.Address(), cmds, c.printer)
}

// waitForSignin shows a spinner while the user's sign-in is in flight.
func (c *Console) waitForSignin(ctx context.Context, out io.Writer) {
	if c.pending == nil || !c.pending.Pending(c.cfg.UserID) {
		return
	}

	var s *spinner.Spinner
	if !c.cfg.Quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		s.Suffix = " Waiting for sign-in in the browser..."
		s.Start()
		defer s.Stop()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for c.pending.Pending(c.cfg.UserID) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	// Give the outcome message a moment to print after the spinner line.
	time.Sleep(pollInterval)
}

// printer is the console's messenger.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) setOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

func (p *printer) Send(_ context.Context, msg conversation.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	to := "bot"
	if msg.Address.Conversation == nil {
		to = "bot (private)"
	}
	if msg.Card != nil {
		_, err := fmt.Fprintf(p.out, "%s> %s\n  [%s] %s\n", to, msg.Card.Text, msg.Card.ButtonLabel, msg.Card.URL)
		return err
	}
	_, err := fmt.Fprintf(p.out, "%s> %s\n", to, msg.Text)
	return err
}
