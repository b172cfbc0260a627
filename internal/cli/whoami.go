package cli

import (
	"github.com/spf13/cobra"
)

func newWhoamiCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile behind the configured credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			profile, err := session.Profile(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": profile})
		},
	}
	return cmd
}
