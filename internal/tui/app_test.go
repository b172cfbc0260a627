package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpchung/challenge-portal-dashboard/internal/annotate"
	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

type fakeDirectory struct {
	annos    map[string]synapse.Annotations
	readOnly bool
	setErr   error
	setSeen  []string
}

func (f *fakeDirectory) ListProjects(ctx context.Context, viewID string) ([]synapse.ProjectRef, error) {
	return []synapse.ProjectRef{{ID: "syn1", Name: "Alpha Challenge"}}, nil
}

func (f *fakeDirectory) GetPermissions(ctx context.Context, entityID string) (synapse.Permissions, error) {
	return synapse.Permissions{CanView: true, CanEdit: !f.readOnly}, nil
}

func (f *fakeDirectory) GetAnnotations(ctx context.Context, entityID string) (synapse.Annotations, error) {
	if a, ok := f.annos[entityID]; ok {
		return a, nil
	}
	return synapse.Annotations{ID: entityID, Etag: "e0"}, nil
}

func (f *fakeDirectory) SetAnnotations(ctx context.Context, entityID string, a synapse.Annotations) (synapse.Annotations, error) {
	if f.setErr != nil {
		return synapse.Annotations{}, f.setErr
	}
	f.setSeen = append(f.setSeen, entityID)
	if f.annos == nil {
		f.annos = map[string]synapse.Annotations{}
	}
	f.annos[entityID] = a
	return a, nil
}

func (f *fakeDirectory) GetEntity(ctx context.Context, entityID string) (synapse.Entity, error) {
	return synapse.Entity{ID: entityID}, nil
}

func (f *fakeDirectory) GetWikiHeaders(ctx context.Context, ownerID string) ([]synapse.WikiHeader, error) {
	return []synapse.WikiHeader{{ID: "w1", Title: "Overview"}}, nil
}

func (f *fakeDirectory) GetWikiPage(ctx context.Context, ownerID, wikiID string) (synapse.WikiPage, error) {
	return synapse.WikiPage{ID: wikiID, Markdown: "# Welcome"}, nil
}

func (f *fakeDirectory) ListChildren(ctx context.Context, parentID string, types []string) ([]synapse.ChildEntity, error) {
	return []synapse.ChildEntity{{ID: "syn10", Name: "data", Type: synapse.TypeFolder}}, nil
}

func (f *fakeDirectory) GetSchemaColumns(ctx context.Context, viewID string) ([]string, error) {
	return []string{"documentationLink", "status", "challengeType"}, nil
}

func (f *fakeDirectory) GetUserProfile(ctx context.Context) (synapse.UserProfile, error) {
	return synapse.UserProfile{OwnerID: "42", UserName: "tester"}, nil
}

func newTestModel(t *testing.T) (appModel, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{}
	m := newAppModel(portal.NewSession(dir, "syn51476218"))
	m.width, m.height = 100, 40
	m.resizeLists()
	return m, dir
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(appModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

// drain runs a command synchronously and feeds its message back.
func drain(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = update(t, m, msg)
	}
	return m
}

func enter() tea.Msg { return tea.KeyMsg{Type: tea.KeyEnter} }
func esc() tea.Msg   { return tea.KeyMsg{Type: tea.KeyEsc} }

func TestEnterWalksProjectTypeResource(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(t, m, m.Init())

	m, cmd := update(t, m, enter())
	if m.view != viewTypes || m.sel.ProjectID != "syn1" {
		t.Fatalf("after project enter: view=%v sel=%+v", m.view, m.sel)
	}
	m = drain(t, m, cmd)

	m, cmd = update(t, m, enter()) // first type = wiki
	if m.view != viewResources || m.sel.ResourceType != nav.ResourceWiki {
		t.Fatalf("after type enter: view=%v sel=%+v", m.view, m.sel)
	}
	m = drain(t, m, cmd)

	m, cmd = update(t, m, enter())
	if m.view != viewAnnotate || m.sel.ResourceID == "" {
		t.Fatalf("after resource enter: view=%v sel=%+v", m.view, m.sel)
	}
	m = drain(t, m, cmd)

	if m.form.Key != "documentationLink" {
		t.Fatalf("wiki default key = %q", m.form.Key)
	}
	if !m.canEdit {
		t.Fatal("expected edit access")
	}
}

func TestEscBackClearsResourceAndProject(t *testing.T) {
	m, _ := newTestModel(t)
	m = drain(t, m, m.Init())

	m, cmd := update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)

	m, _ = update(t, m, esc())
	if m.view != viewResources || m.sel.ResourceID != "" {
		t.Fatalf("after esc from annotate: view=%v sel=%+v", m.view, m.sel)
	}
	m, _ = update(t, m, esc())
	if m.view != viewTypes {
		t.Fatalf("after esc from resources: view=%v", m.view)
	}
	m, cmd = update(t, m, esc())
	if m.view != viewProjects || m.sel.ProjectID != "" {
		t.Fatalf("after esc from types: view=%v sel=%+v", m.view, m.sel)
	}
	drain(t, m, cmd)
}

func TestSubmitWritesProjectAndRereads(t *testing.T) {
	m, dir := newTestModel(t)
	m = drain(t, m, m.Init())
	m, cmd := update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)

	// documentationLink is a text widget; tab to the value and save.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)

	if len(dir.setSeen) != 1 || dir.setSeen[0] != "syn1" {
		t.Fatalf("annotation written to %v, want syn1", dir.setSeen)
	}
	if !m.flashOK || !strings.Contains(m.flash, "Successfully added annotation documentationLink to syn1.") {
		t.Fatalf("flash = ok=%v %q", m.flashOK, m.flash)
	}
	if !m.form.Current.Known || m.form.Current.Display == annotate.EmptyDisplay {
		t.Fatalf("current value not re-read: %+v", m.form.Current)
	}
}

func TestNonEditableProjectShowsPermissionDenied(t *testing.T) {
	m, dir := newTestModel(t)
	dir.readOnly = true
	m = drain(t, m, m.Init())

	m, cmd := update(t, m, enter())
	m = drain(t, m, cmd)
	if !m.denied {
		t.Fatal("expected the permission gate to trip on project entry")
	}
	if !strings.Contains(m.View(), "Insufficient permission") {
		t.Fatalf("expected the permission-denied view:\n%s", m.View())
	}

	// Enter must not walk into the resource screens.
	m, cmd = update(t, m, enter())
	if m.view != viewTypes || cmd != nil {
		t.Fatalf("navigation leaked past the gate: view=%v", m.view)
	}

	// Choosing a different project is the way out.
	m, cmd = update(t, m, esc())
	if m.view != viewProjects || m.denied {
		t.Fatalf("esc should return to projects: view=%v denied=%v", m.view, m.denied)
	}
	drain(t, m, cmd)
}

func TestSubmitFailureKeepsAttemptedValue(t *testing.T) {
	m, dir := newTestModel(t)
	dir.setErr = &synapse.Error{Kind: synapse.KindWrite, Op: "setAnnotations", Status: 412, Reason: "etag out of date"}
	m = drain(t, m, m.Init())
	m, cmd := update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m.input.SetValue("syn1/wiki/custom")
	m, cmd = update(t, m, enter())
	m = drain(t, m, cmd)

	if m.flashOK || !strings.Contains(m.flash, "Failed to update annotation") {
		t.Fatalf("flash = ok=%v %q", m.flashOK, m.flash)
	}
	if m.input.Value() != "syn1/wiki/custom" {
		t.Fatalf("attempted value reset to %q after failed submit", m.input.Value())
	}
}

func TestApplyFormPinsDefaultKey(t *testing.T) {
	m, _ := newTestModel(t)
	m.form = portal.Form{
		Columns:  []string{"status", "documentationLink", "challengeType"},
		Key:      "documentationLink",
		Defaults: annotate.Defaults{Key: "documentationLink", Value: "syn1/wiki/w1"},
		Widget:   annotate.WidgetFor("documentationLink"),
	}
	m.applyForm()

	if got := m.keysList.SelectedItem().(keyListItem); got.key != "documentationLink" || !got.pinned {
		t.Fatalf("selected key item = %+v", got)
	}
	if m.input.Value() != "syn1/wiki/w1" {
		t.Fatalf("input preset = %q", m.input.Value())
	}
}

func TestMultiSelectSpaceTogglesAndJoins(t *testing.T) {
	m, dir := newTestModel(t)
	m.sel = nav.SelectionState{
		ProjectID: "syn1", ProjectName: "Alpha Challenge",
		ResourceType: nav.ResourceTable, ResourceID: "syn11", ResourceTitle: "scores",
	}
	m.view = viewAnnotate
	m.canEdit = true
	m.form = portal.Form{
		Key:      "challengeType",
		Defaults: annotate.Defaults{Key: "ChallengeTable", Value: "syn11"},
		Widget:   annotate.WidgetFor("challengeType"),
	}
	m.applyForm()
	m.focus = focusValue

	space := tea.KeyMsg{Type: tea.KeySpace}
	m, _ = update(t, m, space) // Data To Model
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, space) // Project/Writeup

	m, cmd := update(t, m, enter())
	drain(t, m, cmd)

	got, _ := dir.annos["syn1"].Get("challengeType")
	if got.Display() != "Data To Model, Project/Writeup" {
		t.Fatalf("stored challengeType = %q", got.Display())
	}
}
