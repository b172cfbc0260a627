package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/format"
)

func newAnnotationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Read and write entity annotations",
	}
	cmd.AddCommand(newAnnotationsGetCmd(app))
	cmd.AddCommand(newAnnotationsSetCmd(app))
	return cmd
}

func newAnnotationsGetCmd(app *App) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get <entity-id>",
		Short: "Show an entity's annotations (or one key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			entityID := args[0]

			if key != "" {
				cur := session.Workflow().ReadCurrentValue(cmd.Context(), entityID, key)
				if !cur.Known {
					return writeErr(cmd, errors.New("could not fetch current value of "+key+" on "+entityID))
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]string{key: cur.Display}})
			}

			annos, err := session.Annotations(cmd.Context(), entityID)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.Format == "table" {
				t := format.NewTable("KEY", "VALUE")
				for k, v := range annos.Annotations {
					t.AddRow(k, v.Display())
				}
				return writeOut(cmd, app, t)
			}
			return writeOut(cmd, app, map[string]any{"data": annos})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Single annotation key to read")
	return cmd
}

func newAnnotationsSetCmd(app *App) *cobra.Command {
	var key string
	var value string

	cmd := &cobra.Command{
		Use:   "set <entity-id>",
		Short: "Write one annotation key on an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			entityID := args[0]

			ok, msg := session.Submit(cmd.Context(), entityID, key, value)
			if !ok {
				return writeErr(cmd, errors.New(msg))
			}
			// Read back so the reported value is the service's, not an echo.
			cur := session.Workflow().ReadCurrentValue(cmd.Context(), entityID, key)
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"entity":  entityID,
					"key":     key,
					"value":   cur.Display,
					"message": msg,
				},
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Annotation key")
	cmd.Flags().StringVar(&value, "value", "", "Annotation value")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
