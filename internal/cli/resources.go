package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/format"
	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
)

func newResourcesCmd(app *App) *cobra.Command {
	var projectID string
	var kind string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List a project's wiki pages, folders, or tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := nav.ParseResourceType(kind)
			if !t.Valid() {
				return writeErr(cmd, errors.New("unknown resource type (expected wiki|folder|table)"))
			}
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rows, err := session.Resources(cmd.Context(), projectID, t)
			if err != nil {
				return writeErr(cmd, err)
			}

			if app.Format == "table" {
				tab := format.NewTable("ID", "NAME")
				for _, r := range rows {
					tab.AddRow(r.ID, r.Name)
				}
				return writeOut(cmd, app, tab)
			}
			return writeOut(cmd, app, map[string]any{"data": rows})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id (synID)")
	cmd.Flags().StringVar(&kind, "type", "", "Resource type (wiki|folder|table)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
