// Package store persists browser session state for the web dashboard.
//
// Each signed session cookie maps to one row holding the serialized
// navigation selection, so a reload lands the user on the same screen.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/vpchung/challenge-portal-dashboard/internal/nav"

	_ "modernc.org/sqlite"
)

// Sessions is a sqlite-backed session store rooted at Path.
type Sessions struct {
	db *sql.DB
}

// OpenSessions opens (creating if needed) the session database at path.
func OpenSessions(ctx context.Context, path string) (*Sessions, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout helps avoid
	// "database is locked" flakiness when the CLI and web server overlap.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sessions{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Sessions) Close() error { return s.db.Close() }

// Save upserts the selection for a session id.
func (s *Sessions) Save(ctx context.Context, id string, sel nav.SelectionState) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, state_json, updated_at_unixms)
		VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at_unixms = excluded.updated_at_unixms;`,
		id, string(raw), time.Now().UnixMilli())
	return err
}

// Load returns the saved selection for a session id. Unknown ids get the
// zero selection, not an error, so a fresh browser starts at the project
// list.
func (s *Sessions) Load(ctx context.Context, id string) (nav.SelectionState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM sessions WHERE id = ?;`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nav.SelectionState{}, nil
	}
	if err != nil {
		return nav.SelectionState{}, err
	}
	var sel nav.SelectionState
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		// A corrupt row should not brick the session; start over.
		return nav.SelectionState{}, nil
	}
	return sel, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Sessions) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	return err
}

// Prune drops sessions untouched for longer than maxAge.
func (s *Sessions) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE updated_at_unixms < ?;`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
