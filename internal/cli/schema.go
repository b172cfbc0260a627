package cli

import (
	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/format"
)

func newSchemaCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the view's annotatable columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cols, err := session.SchemaColumns(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.Format == "table" {
				t := format.NewTable("COLUMN")
				for _, c := range cols {
					t.AddRow(c)
				}
				return writeOut(cmd, app, t)
			}
			return writeOut(cmd, app, map[string]any{"data": cols})
		},
	}
	return cmd
}
