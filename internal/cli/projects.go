package cli

import (
	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/format"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Challenge project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var search string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the challenge projects in the view",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if refresh {
				session.RefreshProjects()
			}
			rows, err := session.Projects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			rows = portal.FilterProjects(rows, search)

			if app.Format == "table" {
				t := format.NewTable("ID", "NAME", "ANNOTATIONS", "EDIT")
				for _, p := range rows {
					t.AddRow(p.ID, p.Name, format.YesNo(p.HasAnnotations), format.YesNo(p.CanEdit))
				}
				return writeOut(cmd, app, t)
			}
			return writeOut(cmd, app, map[string]any{"data": rows})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive substring match on project name or id")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the memoized listing and refetch")
	return cmd
}
