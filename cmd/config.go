package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskbot/internal/app"
	"taskbot/internal/config"
	"taskbot/internal/messages"
	textutil "taskbot/pkg/strings"
)

const (
	redacted           = "********"
	messageColumnWidth = 60
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd(), newConfigMessagesCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(app.Options{ConfigPath: configPath})
			if err != nil {
				return err
			}
			cfg = redact(cfg)

			switch output {
			case "yaml":
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			case "table":
				renderConfigTable(cmd.OutOrStdout(), cfg)
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (use table or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or yaml")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads and is valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := app.LoadConfig(app.Options{ConfigPath: configPath})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration %s is valid\n", text.FgGreen.Sprint("✓"), path)
			return nil
		},
	}
}

func newConfigMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List the message keys that can be overridden under 'messages'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Key", "Default"})
			for _, key := range messages.Keys() {
				t.AppendRow(table.Row{string(key), textutil.OneLine(messages.DefaultText(key), messageColumnWidth)})
			}
			t.Render()
			return nil
		},
	}
}

// redact hides credentials.
func redact(cfg config.Config) config.Config {
	if cfg.OAuth.AppSecret != "" {
		cfg.OAuth.AppSecret = redacted
	}
	if cfg.WorkItems.Token != "" {
		cfg.WorkItems.Token = redacted
	}
	if cfg.Store.Redis.Password != "" {
		cfg.Store.Redis.Password = redacted
	}
	return cfg
}

func renderConfigTable(w io.Writer, cfg config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Setting", "Value"})

	t.AppendRows([]table.Row{
		{"server.addr", cfg.Server.Addr},
		{"server.callbackPath", cfg.Server.CallbackPath},
		{"server.callbackRate", cfg.Server.CallbackRate},
		{"server.callbackBurst", cfg.Server.CallbackBurst},
		{"server.ingress", cfg.Server.Ingress},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"oauth.appId", cfg.OAuth.AppID},
		{"oauth.appSecret", cfg.OAuth.AppSecret},
		{"oauth.callbackUrl", cfg.OAuth.CallbackURL},
		{"oauth.authorizeUrl", cfg.OAuth.AuthorizeURL},
		{"oauth.tokenUrl", cfg.OAuth.TokenURL},
		{"oauth.profileUrl", cfg.OAuth.ProfileURL},
		{"oauth.scope", cfg.OAuth.Scope},
		{"oauth.authTimeout", cfg.OAuth.AuthTimeout},
		{"oauth.allowedDomains", strings.Join(cfg.OAuth.AllowedDomains, ", ")},
		{"oauth.rejectSuperseded", cfg.OAuth.RejectSuperseded},
	})
	t.AppendSeparator()
	workItems := "disabled"
	if cfg.WorkItems.Enabled() {
		workItems = cfg.WorkItems.OrganizationURL + "/" + cfg.WorkItems.Project
	}
	t.AppendRows([]table.Row{
		{"workItems", workItems},
		{"workItems.token", cfg.WorkItems.Token},
	})
	t.AppendSeparator()
	store := cfg.Store.Backend
	if cfg.Store.Backend == config.StoreRedis {
		store = fmt.Sprintf("redis %s db=%d prefix=%s ttl=%s", cfg.Store.Redis.Addr, cfg.Store.Redis.DB, cfg.Store.Redis.KeyPrefix, cfg.Store.Redis.TTL)
	}
	nats := "disabled"
	if cfg.NATS.Enabled {
		nats = fmt.Sprintf("%s (in %s, out %s.*)", cfg.NATS.URL, cfg.NATS.InboundSubject, cfg.NATS.OutboundPrefix)
	}
	t.AppendRows([]table.Row{
		{"store", store},
		{"nats", nats},
		{"logging", cfg.Logging.Level + "/" + cfg.Logging.Format},
		{"messages overridden", len(cfg.Messages)},
	})
	t.Render()
}
