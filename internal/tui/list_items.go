package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

type projectListItem struct {
	project portal.Project
}

func (i projectListItem) FilterValue() string {
	return i.project.Name + " " + i.project.ID
}

func (i projectListItem) Title() string {
	flags := ""
	if i.project.HasAnnotations {
		flags += " ●"
	}
	if !i.project.CanEdit {
		flags += " (read-only)"
	}
	return i.project.Name + "  " + i.project.ID + flags
}

type typeListItem struct {
	t nav.ResourceType
}

func (i typeListItem) FilterValue() string { return i.t.Label() }
func (i typeListItem) Title() string       { return i.t.Label() }

type resourceListItem struct {
	child synapse.ChildEntity
}

func (i resourceListItem) FilterValue() string {
	return i.child.Name + " " + i.child.ID
}

func (i resourceListItem) Title() string {
	return i.child.Name + "  " + i.child.ID
}

type keyListItem struct {
	key     string
	pinned  bool // resolved default for the selection
	current bool
}

func (i keyListItem) FilterValue() string { return i.key }
func (i keyListItem) Title() string {
	t := i.key
	if i.pinned {
		t += " *"
	}
	return t
}

type optionListItem struct {
	value  string
	chosen bool
}

func (i optionListItem) FilterValue() string { return i.value }
func (i optionListItem) Title() string {
	if i.chosen {
		return "[x] " + i.value
	}
	return "[ ] " + i.value
}

func newList(title, help string, items []list.Item) list.Model {
	l := list.New(items, newRowDelegate(), 0, 0)
	l.Title = title
	// The app renders its own header and footer, so keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName(strings.ToLower(title), strings.ToLower(title)+"s")
	// Bubble list defaults to quitting on ESC; here ESC is "back".
	l.KeyMap.Quit.SetKeys("q")
	// Emacs-style navigation aliases.
	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	cursorUpKeys = append(cursorUpKeys, "ctrl+p")
	l.KeyMap.CursorUp.SetKeys(cursorUpKeys...)

	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	cursorDownKeys = append(cursorDownKeys, "ctrl+n")
	l.KeyMap.CursorDown.SetKeys(cursorDownKeys...)
	return l
}
