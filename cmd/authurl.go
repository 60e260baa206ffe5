package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskbot/internal/app"
	"taskbot/internal/identity"
)

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url <user-id>",
		Short: "Print the sign-in URL the bot would send to a user",
		Long: `Prints the provider authorization URL for the given user id. The user id
is carried as the OAuth state, so the callback can only be matched while that
user has a sign-in pending in a running bot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(app.Options{ConfigPath: configPath})
			if err != nil {
				return err
			}
			client := identity.NewClient(identity.Config{
				AppID:        cfg.OAuth.AppID,
				AppSecret:    cfg.OAuth.AppSecret,
				CallbackURL:  cfg.OAuth.CallbackURL,
				AuthorizeURL: cfg.OAuth.AuthorizeURL,
				TokenURL:     cfg.OAuth.TokenURL,
				ProfileURL:   cfg.OAuth.ProfileURL,
				Scope:        cfg.OAuth.Scope,
			})
			fmt.Fprintln(cmd.OutOrStdout(), client.AuthorizationURL(args[0]))
			return nil
		},
	}
}
