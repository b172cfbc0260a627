package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
)

func openTestSessions(t *testing.T) *Sessions {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.sqlite")
	s, err := OpenSessions(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestSessions(t)
	ctx := context.Background()

	want := nav.SelectionState{
		ProjectID:     "syn100",
		ProjectName:   "Example Challenge",
		ResourceType:  nav.ResourceFolder,
		ResourceID:    "syn200",
		ResourceTitle: "data",
	}
	if err := s.Save(ctx, "sess-a", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "sess-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestLoadUnknownIDIsZero(t *testing.T) {
	s := openTestSessions(t)

	got, err := s.Load(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (nav.SelectionState{}) {
		t.Fatalf("Load = %+v, want zero selection", got)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	s := openTestSessions(t)
	ctx := context.Background()

	first := nav.SelectionState{ProjectID: "syn1", ProjectName: "one"}
	second := nav.SelectionState{ProjectID: "syn2", ProjectName: "two"}
	if err := s.Save(ctx, "sess-b", first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := s.Save(ctx, "sess-b", second); err != nil {
		t.Fatalf("Save second: %v", err)
	}
	got, err := s.Load(ctx, "sess-b")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != second {
		t.Fatalf("Load = %+v, want %+v", got, second)
	}
}

func TestDeleteThenLoadIsZero(t *testing.T) {
	s := openTestSessions(t)
	ctx := context.Background()

	if err := s.Save(ctx, "sess-c", nav.SelectionState{ProjectID: "syn3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "sess-c"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Load(ctx, "sess-c")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != (nav.SelectionState{}) {
		t.Fatalf("Load after delete = %+v, want zero selection", got)
	}
}

func TestPruneDropsOnlyStale(t *testing.T) {
	s := openTestSessions(t)
	ctx := context.Background()

	if err := s.Save(ctx, "fresh", nav.SelectionState{ProjectID: "syn4"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Backdate a second row well past any cutoff we would use.
	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, state_json, updated_at_unixms)
		VALUES('stale', '{}', ?);`, old); err != nil {
		t.Fatalf("insert stale: %v", err)
	}

	n, err := s.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("Prune removed %d rows, want 1", n)
	}
	got, err := s.Load(ctx, "fresh")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ProjectID != "syn4" {
		t.Fatalf("fresh session lost: %+v", got)
	}
}
