// Package portal wires the remote directory client, the memoized fetch
// layer, and the annotation workflow into the surface the web, TUI, and
// CLI frontends render.
package portal

import (
	"context"
	"strings"
	"time"

	"github.com/vpchung/challenge-portal-dashboard/internal/annotate"
	"github.com/vpchung/challenge-portal-dashboard/internal/cache"
	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

// Directory is the remote content/metadata service as this system consumes
// it. *synapse.Client satisfies it; tests inject fakes.
type Directory interface {
	ListProjects(ctx context.Context, viewID string) ([]synapse.ProjectRef, error)
	GetPermissions(ctx context.Context, entityID string) (synapse.Permissions, error)
	GetAnnotations(ctx context.Context, entityID string) (synapse.Annotations, error)
	SetAnnotations(ctx context.Context, entityID string, a synapse.Annotations) (synapse.Annotations, error)
	GetEntity(ctx context.Context, entityID string) (synapse.Entity, error)
	GetWikiHeaders(ctx context.Context, ownerID string) ([]synapse.WikiHeader, error)
	GetWikiPage(ctx context.Context, ownerID, wikiID string) (synapse.WikiPage, error)
	ListChildren(ctx context.Context, parentID string, types []string) ([]synapse.ChildEntity, error)
	GetSchemaColumns(ctx context.Context, viewID string) ([]string, error)
	GetUserProfile(ctx context.Context) (synapse.UserProfile, error)
}

// Fixed TTLs per memoized call site.
const (
	projectsTTL    = 5 * time.Minute
	rawProjectsTTL = 10 * time.Minute
	schemaTTL      = time.Hour
)

// Project is one row of the project list view.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// HasAnnotations is true when any annotation key holds a non-empty
	// value. A failed annotation fetch counts as false; the list view does
	// not distinguish the two.
	HasAnnotations bool `json:"hasAnnotations"`
	CanEdit        bool `json:"canEdit"`
}

// Session is the per-credential dashboard state: one directory client plus
// the memoized fetch layer. Caches are confined to the session, never
// shared across identities.
type Session struct {
	dir    Directory
	viewID string

	workflow annotate.Workflow

	projects    *cache.Cache[string, []Project]
	rawProjects *cache.Cache[string, []synapse.ProjectRef]
	schema      *cache.Cache[string, []string]
}

func NewSession(dir Directory, viewID string) *Session {
	return &Session{
		dir:         dir,
		viewID:      strings.TrimSpace(viewID),
		workflow:    annotate.NewWorkflow(dir),
		projects:    cache.New[string, []Project](),
		rawProjects: cache.New[string, []synapse.ProjectRef](),
		schema:      cache.New[string, []string](),
	}
}

// Workflow exposes the annotation workflow bound to this session's client.
func (s *Session) Workflow() annotate.Workflow { return s.workflow }

func (s *Session) ViewID() string { return s.viewID }

// Profile identifies the logged-in user; it is also the startup credential
// check (an invalid token fails with the auth kind).
func (s *Session) Profile(ctx context.Context) (synapse.UserProfile, error) {
	return s.dir.GetUserProfile(ctx)
}

// RawProjects lists id/name rows from the project view, memoized.
func (s *Session) RawProjects(ctx context.Context) ([]synapse.ProjectRef, error) {
	return s.rawProjects.Get(s.viewID, rawProjectsTTL, func() ([]synapse.ProjectRef, error) {
		return s.dir.ListProjects(ctx, s.viewID)
	})
}

// Projects lists the project rows with annotation status and edit
// permission, memoized. Per-project annotation or permission failures
// degrade that row to false flags rather than failing the listing.
func (s *Session) Projects(ctx context.Context) ([]Project, error) {
	return s.projects.Get(s.viewID, projectsTTL, func() ([]Project, error) {
		refs, err := s.RawProjects(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Project, 0, len(refs))
		for _, ref := range refs {
			row := Project{ID: ref.ID, Name: ref.Name}
			if annos, err := s.dir.GetAnnotations(ctx, ref.ID); err == nil {
				row.HasAnnotations = annos.HasAny()
			}
			if perms, err := s.dir.GetPermissions(ctx, ref.ID); err == nil {
				row.CanEdit = perms.CanEdit
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
}

// RefreshProjects drops the memoized project rows; the next read
// repopulates from the remote service. Triggered by the user's Refresh
// action only.
func (s *Session) RefreshProjects() {
	s.projects.Invalidate()
	s.rawProjects.Invalidate()
}

// FilterProjects narrows rows by a case-insensitive substring match
// against name or id. An unmatched query yields an empty set.
func FilterProjects(rows []Project, query string) []Project {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	out := make([]Project, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Name), query) || strings.Contains(strings.ToLower(row.ID), query) {
			out = append(out, row)
		}
	}
	return out
}

// CanEdit re-checks edit permission directly, independent of the cached
// project-list flag. Any failure reads as "not editable".
func (s *Session) CanEdit(ctx context.Context, entityID string) bool {
	perms, err := s.dir.GetPermissions(ctx, entityID)
	if err != nil {
		return false
	}
	return perms.CanEdit
}

func (s *Session) WikiHeaders(ctx context.Context, ownerID string) ([]synapse.WikiHeader, error) {
	return s.dir.GetWikiHeaders(ctx, ownerID)
}

func (s *Session) WikiPage(ctx context.Context, ownerID, wikiID string) (synapse.WikiPage, error) {
	return s.dir.GetWikiPage(ctx, ownerID, wikiID)
}

func (s *Session) Folders(ctx context.Context, projectID string) ([]synapse.ChildEntity, error) {
	return s.dir.ListChildren(ctx, projectID, []string{synapse.TypeFolder})
}

func (s *Session) Tables(ctx context.Context, projectID string) ([]synapse.ChildEntity, error) {
	return s.dir.ListChildren(ctx, projectID, []string{synapse.TypeTable, synapse.TypeEntityView})
}

// FolderContents lists the files and sub-folders inside a folder.
func (s *Session) FolderContents(ctx context.Context, folderID string) ([]synapse.ChildEntity, error) {
	return s.dir.ListChildren(ctx, folderID, []string{synapse.TypeFile, synapse.TypeFolder})
}

// SchemaColumns returns the editable annotation-key universe, memoized.
func (s *Session) SchemaColumns(ctx context.Context) ([]string, error) {
	return s.schema.Get(s.viewID, schemaTTL, func() ([]string, error) {
		return s.dir.GetSchemaColumns(ctx, s.viewID)
	})
}

// Resources lists the entries for the active resource type.
func (s *Session) Resources(ctx context.Context, projectID string, t nav.ResourceType) ([]synapse.ChildEntity, error) {
	switch t {
	case nav.ResourceWiki:
		headers, err := s.WikiHeaders(ctx, projectID)
		if err != nil {
			return nil, err
		}
		out := make([]synapse.ChildEntity, 0, len(headers))
		for _, h := range headers {
			out = append(out, synapse.ChildEntity{ID: h.ID, Name: h.Title, Type: "wiki"})
		}
		return out, nil
	case nav.ResourceFolder:
		return s.Folders(ctx, projectID)
	case nav.ResourceTable:
		return s.Tables(ctx, projectID)
	}
	return nil, nil
}

// Form is the annotation-edit form data for the current selection. The
// annotation itself is written onto the project; the resolved default
// value links the selected resource to it.
type Form struct {
	Columns      []string
	DefaultIndex int
	Key          string
	Defaults     annotate.Defaults
	Widget       annotate.Widget
	Current      annotate.CurrentValue
}

// AnnotationForm assembles the form for the selection. key overrides the
// resolved default when the user has picked a different column.
func (s *Session) AnnotationForm(ctx context.Context, sel nav.SelectionState, key string) Form {
	defaults := annotate.ResolveDefaults(sel.ResourceType, sel.ResourceID, sel.ProjectID)

	cols, _ := s.SchemaColumns(ctx) // schema failure degrades to the default key alone
	ordered, idx := annotate.OrderColumns(cols, defaults, sel.ResourceType)

	active := strings.TrimSpace(key)
	if active == "" {
		if len(ordered) > 0 {
			active = ordered[idx]
		} else {
			active = defaults.Key
		}
	}
	for i, c := range ordered {
		if c == active {
			idx = i
			break
		}
	}

	return Form{
		Columns:      ordered,
		DefaultIndex: idx,
		Key:          active,
		Defaults:     defaults,
		Widget:       annotate.WidgetFor(active),
		Current:      s.workflow.ReadCurrentValue(ctx, sel.ProjectID, active),
	}
}

// Annotations returns the raw annotation set of an entity, uncached.
func (s *Session) Annotations(ctx context.Context, entityID string) (synapse.Annotations, error) {
	return s.dir.GetAnnotations(ctx, entityID)
}

// Submit writes annotations[key] = [value] on the entity and reports the
// outcome. The subsequent current-value read must come from
// Workflow().ReadCurrentValue, never from an echo of the input.
func (s *Session) Submit(ctx context.Context, entityID, key, value string) (bool, string) {
	return s.workflow.Submit(ctx, entityID, key, value)
}
