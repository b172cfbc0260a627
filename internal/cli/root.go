// Package cli wires the cobra command tree for the portal binary.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/config"
	"github.com/vpchung/challenge-portal-dashboard/internal/format"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
	"github.com/vpchung/challenge-portal-dashboard/internal/tui"
)

type App struct {
	Endpoint   string
	ViewID     string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "portal",
		Short:        "Challenge portal dashboard CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  portal

  # Scriptable commands
  portal projects list
  portal projects list --search dream --format table

  # Read and write annotations directly
  portal annotations get syn12345678
  portal annotations set syn12345678 --key status --value Closed

  # Serve the browser dashboard
  portal serve --addr 127.0.0.1:3334
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Endpoint, "endpoint", envOr("SYNAPSE_ENDPOINT", ""), "Synapse REST endpoint (default: production)")
	cmd.PersistentFlags().StringVar(&app.ViewID, "view", envOr("PORTAL_VIEW_ID", ""), "Challenge project view id")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PORTAL_FORMAT", "json"), "Output format (json|table)")

	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newResourcesCmd(app))
	cmd.AddCommand(newAnnotationsCmd(app))
	cmd.AddCommand(newSchemaCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

// newSession builds the portal session from config plus flag overrides.
// A missing credential fails here, before any command logic runs.
func newSession(app *App) (*portal.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.Endpoint) != "" {
		cfg.Endpoint = strings.TrimSpace(app.Endpoint)
	}
	if strings.TrimSpace(app.ViewID) != "" {
		cfg.ViewID = strings.TrimSpace(app.ViewID)
	}

	client, err := synapse.New(synapse.Config{
		Endpoint: cfg.Endpoint,
		Token:    cfg.AuthToken,
	})
	if err != nil {
		return nil, err
	}
	return portal.NewSession(client, cfg.ViewID), nil
}

func runTUI(app *App) error {
	session, err := newSession(app)
	if err != nil {
		return err
	}
	return tui.Run(session)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
