package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vpchung/challenge-portal-dashboard/internal/config"
	"github.com/vpchung/challenge-portal-dashboard/internal/store"
	"github.com/vpchung/challenge-portal-dashboard/internal/web"
)

// browser sessions idle out after this; a reload past it starts over at
// the project list.
const sessionMaxAge = 30 * 24 * time.Hour

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser dashboard",
		Example: strings.TrimSpace(`
# Serve on localhost
portal serve --addr 127.0.0.1:3334

# Serve a non-default view
portal --view syn99999999 serve
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			session, err := newSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Surface a bad credential now instead of on the first click.
			if _, err := session.Profile(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}

			stateDir, err := config.StateDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			dbPath, err := config.SessionDBPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			sessions, err := store.OpenSessions(cmd.Context(), dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer sessions.Close()
			if _, err := sessions.Prune(cmd.Context(), sessionMaxAge); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "session prune failed: %v\n", err)
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:     listenAddr,
				StateDir: stateDir,
				Portal:   session,
				Sessions: sessions,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			url := "http://" + ln.Addr().String() + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"view":      session.ViewID(),
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "portal dashboard running at %s (view=%s)\n", url, session.ViewID())

			return http.Serve(ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
