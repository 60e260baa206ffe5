package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"taskbot/internal/config"
	"taskbot/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeConfig indicates the configuration could not be loaded or is invalid.
	ExitCodeConfig = 2
)

// configPath is shared by every command that loads the configuration.
var configPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "taskbot",
	Short: "Chat bot that signs users in with Azure DevOps and manages their work items",
	Long: `taskbot is a chat bot that authenticates users against Azure DevOps
(Visual Studio Online) with an out-of-band OAuth sign-in, keeps per-user and
per-conversation variables, and creates, comments on and assigns work items.

Activities arrive over HTTP or NATS; 'taskbot chat' runs a local console.`,
	SilenceUsage: true,
	// Commands that run the bot re-initialize logging from the configuration.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.LevelWarn, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code describing the failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskbot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error to a process exit code.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var validationErrs config.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ExitCodeConfig
	}

	var configErr *config.ConfigurationError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/taskbot/config.yaml)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthURLCmd())
}
