package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskbot/internal/app"
	"taskbot/internal/config"
	"taskbot/internal/console"
	"taskbot/pkg/logging"
)

type chatOptions struct {
	user    string
	name    string
	conv    string
	group   bool
	quiet   bool
	debug   bool
	logFile string
}

func newChatCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Starts an interactive console that sends each line to the bot as the
given user. Several commands can be separated with ';'.

Sessions are kept in memory and NATS is not used. The HTTP server still runs
so the OAuth callback can complete a sign-in started with 'authenticate'.`,
		Example: `  taskbot chat
  taskbot chat --user alice --group
  taskbot chat --log-file /tmp/taskbot.log --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "console-user", "User id to chat as")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name of the user")
	cmd.Flags().StringVar(&opts.conv, "conversation", "console", "Conversation id")
	cmd.Flags().BoolVar(&opts.group, "group", false, "Behave like a group conversation")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Do not show a spinner while a sign-in is pending")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of discarding them")
	return cmd
}

// chatConfig adapts a loaded configuration to a local console session.
func chatConfig(cfg config.Config) config.Config {
	cfg.Store.Backend = config.StoreMemory
	cfg.NATS.Enabled = false
	cfg.Server.Ingress = false
	return cfg
}

func runChat(ctx context.Context, opts chatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, path, err := app.LoadConfig(app.Options{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = chatConfig(cfg)

	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	app.InitLogging(cfg.Logging, opts.debug, logOut)
	logging.Info("Chat", "Loaded configuration from %s", path)

	application, err := app.New(app.Options{ConfigPath: path}, path, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- application.Run(ctx) }()

	services := application.Services()
	c := console.New(console.Config{
		UserID:         opts.user,
		UserName:       opts.name,
		ConversationID: opts.conv,
		Group:          opts.group,
		Quiet:          opts.quiet,
	}, services.Bot, services.Registry)

	consoleErr := c.Run(ctx)
	cancel()

	if err := <-serveErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return consoleErr
}
