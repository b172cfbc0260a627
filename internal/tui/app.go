package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpchung/challenge-portal-dashboard/internal/annotate"
	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

type view int

const (
	viewProjects view = iota
	viewTypes
	viewResources
	viewAnnotate
)

type focusArea int

const (
	focusKeys focusArea = iota
	focusValue
)

type projectsLoadedMsg struct {
	rows []portal.Project
	err  error
}

type accessCheckedMsg struct {
	canEdit bool
}

type resourcesLoadedMsg struct {
	rows []synapse.ChildEntity
	err  error
}

type detailLoadedMsg struct {
	form    portal.Form
	canEdit bool
	wiki    string
}

type submittedMsg struct {
	ok      bool
	message string
	key     string
}

type appModel struct {
	portal *portal.Session
	sel    nav.SelectionState

	width  int
	height int

	view view

	projectsList  list.Model
	typesList     list.Model
	resourcesList list.Model
	keysList      list.Model
	optionsList   list.Model

	input  textinput.Model
	chosen map[string]bool // multiselect picks

	form    portal.Form
	canEdit bool
	denied  bool // blocks resource navigation for the selected project
	wikiMD  string

	focus   focusArea
	loading bool
	flash   string
	flashOK bool
	errMsg  string
}

func newAppModel(p *portal.Session) appModel {
	m := appModel{
		portal: p,
		view:   viewProjects,
		chosen: map[string]bool{},
	}

	m.projectsList = newList("Project", "Select a challenge project", nil)
	m.typesList = newList("Resource type", "Pick what to browse", []list.Item{
		typeListItem{t: nav.ResourceWiki},
		typeListItem{t: nav.ResourceFolder},
		typeListItem{t: nav.ResourceTable},
	})
	m.resourcesList = newList("Resource", "Select a resource", nil)
	m.keysList = newList("Key", "Pick the annotation key", nil)
	m.optionsList = newList("Option", "Pick a value", nil)

	m.input = textinput.New()
	m.input.Prompt = "> "
	return m
}

func (m appModel) Init() tea.Cmd {
	return m.loadProjects(false)
}

func (m appModel) loadProjects(refresh bool) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		if refresh {
			p.RefreshProjects()
		}
		rows, err := p.Projects(context.Background())
		return projectsLoadedMsg{rows: rows, err: err}
	}
}

// checkAccess re-verifies edit permission on entry to a project,
// independent of the cached list flag.
func (m appModel) checkAccess() tea.Cmd {
	p := m.portal
	projectID := m.sel.ProjectID
	return func() tea.Msg {
		return accessCheckedMsg{canEdit: p.CanEdit(context.Background(), projectID)}
	}
}

func (m appModel) loadResources() tea.Cmd {
	p := m.portal
	sel := m.sel
	return func() tea.Msg {
		rows, err := p.Resources(context.Background(), sel.ProjectID, sel.ResourceType)
		return resourcesLoadedMsg{rows: rows, err: err}
	}
}

func (m appModel) loadDetail(key string) tea.Cmd {
	p := m.portal
	sel := m.sel
	return func() tea.Msg {
		msg := detailLoadedMsg{
			form:    p.AnnotationForm(context.Background(), sel, key),
			canEdit: p.CanEdit(context.Background(), sel.ProjectID),
		}
		if sel.ResourceType == nav.ResourceWiki {
			if page, err := p.WikiPage(context.Background(), sel.ProjectID, sel.ResourceID); err == nil {
				msg.wiki = page.Markdown
			}
		}
		return msg
	}
}

func (m appModel) submit(key, value string) tea.Cmd {
	p := m.portal
	projectID := m.sel.ProjectID
	return func() tea.Msg {
		ok, message := p.Submit(context.Background(), projectID, key, value)
		return submittedMsg{ok: ok, message: message, key: key}
	}
}

// typing reports whether keystrokes should reach a text field rather than
// the global keymap.
func (m appModel) typing() bool {
	if m.activeList() != nil && m.activeList().FilterState() == list.Filtering {
		return true
	}
	return m.view == viewAnnotate && m.focus == focusValue &&
		m.form.Widget.Kind == annotate.WidgetText
}

func (m *appModel) activeList() *list.Model {
	switch m.view {
	case viewProjects:
		return &m.projectsList
	case viewTypes:
		return &m.typesList
	case viewResources:
		return &m.resourcesList
	case viewAnnotate:
		if m.focus == focusKeys {
			return &m.keysList
		}
		if m.form.Widget.Kind != annotate.WidgetText {
			return &m.optionsList
		}
		return nil
	}
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case projectsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = "could not load the challenge project list"
			return m, nil
		}
		m.errMsg = ""
		items := make([]list.Item, 0, len(msg.rows))
		for _, row := range msg.rows {
			items = append(items, projectListItem{project: row})
		}
		m.projectsList.SetItems(items)
		return m, nil

	case resourcesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = "could not list " + strings.ToLower(m.sel.ResourceType.Label())
			return m, nil
		}
		m.errMsg = ""
		items := make([]list.Item, 0, len(msg.rows))
		for _, row := range msg.rows {
			items = append(items, resourceListItem{child: row})
		}
		m.resourcesList.SetItems(items)
		return m, nil

	case accessCheckedMsg:
		m.loading = false
		m.canEdit = msg.canEdit
		m.denied = !msg.canEdit
		return m, nil

	case detailLoadedMsg:
		m.loading = false
		m.form = msg.form
		m.canEdit = msg.canEdit
		m.wikiMD = msg.wiki
		m.applyForm()
		return m, nil

	case submittedMsg:
		m.flash = msg.message
		m.flashOK = msg.ok
		if !msg.ok {
			// The attempted value stays in place for a retry.
			return m, nil
		}
		// Re-read so the shown current value comes from the service, not
		// from an echo of the input.
		return m, m.loadDetail(msg.key)

	case tea.KeyMsg:
		if !m.typing() {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}
	}

	if l := m.activeList(); l != nil {
		var cmd tea.Cmd
		*l, cmd = l.Update(msg)
		return m, cmd
	}
	if m.view == viewAnnotate && m.focus == focusValue {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if m.activeList() != nil && m.activeList().FilterState() == list.Filtering {
		return m, nil, false
	}

	switch msg.String() {
	case "esc", "backspace":
		if m.view == viewAnnotate && m.focus == focusValue && m.form.Widget.Kind == annotate.WidgetText {
			// Let backspace edit the input; esc still navigates back.
			if msg.String() == "backspace" {
				return m, nil, false
			}
		}
		switch m.view {
		case viewAnnotate:
			m.sel = nav.SelectResourceType(m.sel, m.sel.ResourceType)
			m.view = viewResources
			m.flash = ""
			return m, nil, true
		case viewResources:
			m.view = viewTypes
			return m, nil, true
		case viewTypes:
			m.sel = nav.DeselectProject(m.sel)
			m.view = viewProjects
			m.denied = false
			return m, m.loadProjects(false), true
		}
		return m, nil, false

	case "r":
		if m.view == viewProjects {
			m.loading = true
			return m, m.loadProjects(true), true
		}
		return m, nil, false

	case "tab":
		if m.view == viewAnnotate && m.canEdit {
			if m.focus == focusKeys {
				m.focus = focusValue
				m.input.Focus()
			} else {
				m.focus = focusKeys
				m.input.Blur()
			}
			return m, nil, true
		}
		return m, nil, false

	case " ":
		if m.view == viewAnnotate && m.focus == focusValue &&
			m.form.Widget.Kind == annotate.WidgetMultiSelect {
			if it, ok := m.optionsList.SelectedItem().(optionListItem); ok {
				m.chosen[it.value] = !m.chosen[it.value]
				m.refreshOptions()
			}
			return m, nil, true
		}
		return m, nil, false

	case "enter":
		return m.handleEnter()
	}
	return m, nil, false
}

func (m appModel) handleEnter() (tea.Model, tea.Cmd, bool) {
	switch m.view {
	case viewProjects:
		if it, ok := m.projectsList.SelectedItem().(projectListItem); ok {
			m.sel = nav.SelectProject(m.sel, it.project.ID, it.project.Name)
			m.view = viewTypes
			m.loading = true
			return m, m.checkAccess(), true
		}

	case viewTypes:
		if m.denied {
			return m, nil, true
		}
		if it, ok := m.typesList.SelectedItem().(typeListItem); ok {
			m.sel = nav.SelectResourceType(m.sel, it.t)
			m.view = viewResources
			m.loading = true
			m.resourcesList.SetItems(nil)
			return m, m.loadResources(), true
		}

	case viewResources:
		if it, ok := m.resourcesList.SelectedItem().(resourceListItem); ok {
			m.sel = nav.SelectResource(m.sel, m.sel.ResourceType, it.child.ID, it.child.Name)
			m.view = viewAnnotate
			m.focus = focusKeys
			m.flash = ""
			m.loading = true
			return m, m.loadDetail(""), true
		}

	case viewAnnotate:
		if m.focus == focusKeys {
			if it, ok := m.keysList.SelectedItem().(keyListItem); ok {
				m.loading = true
				return m, m.loadDetail(it.key), true
			}
			return m, nil, true
		}
		if !m.canEdit {
			return m, nil, true
		}
		value := ""
		switch m.form.Widget.Kind {
		case annotate.WidgetText:
			value = strings.TrimSpace(m.input.Value())
		case annotate.WidgetSelect:
			if it, ok := m.optionsList.SelectedItem().(optionListItem); ok {
				value = it.value
			}
		case annotate.WidgetMultiSelect:
			var picks []string
			for _, opt := range m.form.Widget.Options {
				if m.chosen[opt] {
					picks = append(picks, opt)
				}
			}
			value = annotate.JoinSelections(picks)
		}
		return m, m.submit(m.form.Key, value), true
	}
	return m, nil, false
}

// applyForm rebuilds the key list and the value widget from a freshly
// loaded form.
func (m *appModel) applyForm() {
	items := make([]list.Item, 0, len(m.form.Columns))
	for _, c := range m.form.Columns {
		items = append(items, keyListItem{
			key:     c,
			pinned:  c == m.form.Defaults.Key,
			current: c == m.form.Key,
		})
	}
	if len(items) == 0 {
		items = append(items, keyListItem{key: m.form.Key, pinned: true, current: true})
	}
	m.keysList.SetItems(items)
	for i, it := range items {
		if k, ok := it.(keyListItem); ok && k.current {
			m.keysList.Select(i)
			break
		}
	}

	m.chosen = map[string]bool{}
	switch m.form.Widget.Kind {
	case annotate.WidgetText:
		m.input.SetValue(m.form.Defaults.Value)
		m.input.CursorEnd()
	default:
		m.refreshOptions()
	}
}

func (m *appModel) refreshOptions() {
	idx := m.optionsList.Index()
	items := make([]list.Item, 0, len(m.form.Widget.Options))
	for _, opt := range m.form.Widget.Options {
		items = append(items, optionListItem{value: opt, chosen: m.chosen[opt]})
	}
	m.optionsList.SetItems(items)
	if idx < len(items) {
		m.optionsList.Select(idx)
	}
}

func (m *appModel) resizeLists() {
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	w := m.width
	if w < 40 {
		w = 40
	}
	m.projectsList.SetSize(w, h)
	m.typesList.SetSize(w, h)
	m.resourcesList.SetSize(w, h)
	m.keysList.SetSize(w/2, h/2)
	m.optionsList.SetSize(w/2, h/2)
	m.input.Width = w / 2
}

func (m appModel) breadcrumb() string {
	parts := []string{"Challenge Portal"}
	if m.sel.ProjectID != "" {
		parts = append(parts, m.sel.ProjectName)
	}
	if m.sel.ResourceType != nav.ResourceNone {
		parts = append(parts, m.sel.ResourceType.Label())
	}
	if m.sel.ResourceID != "" {
		parts = append(parts, m.sel.ResourceTitle)
	}
	return strings.Join(parts, " / ")
}

func (m appModel) footerHint() string {
	switch m.view {
	case viewProjects:
		return "enter: open  /: filter  r: refresh  q: quit"
	case viewTypes:
		if m.denied {
			return "esc: back to projects  q: quit"
		}
		return "enter: select  esc: back  q: quit"
	case viewAnnotate:
		if !m.canEdit {
			return "read-only (no edit access)  esc: back  q: quit"
		}
		if m.form.Widget.Kind == annotate.WidgetMultiSelect && m.focus == focusValue {
			return "space: toggle  enter: save  tab: keys  esc: back"
		}
		if m.focus == focusKeys {
			return "enter: pick key  tab: value  esc: back"
		}
		return "enter: save  tab: keys  esc: back"
	default:
		return "enter: select  esc: back  q: quit"
	}
}

func (m appModel) View() string {
	header := styleHeader().Render(m.breadcrumb())

	var body string
	switch m.view {
	case viewProjects:
		body = m.projectsList.View()
	case viewTypes:
		if m.denied {
			body = styleError().Render("Insufficient permission: you do not have edit access to "+m.sel.ProjectName+".") +
				"\n\n" + styleMuted().Render("Choose a different project to continue.")
		} else {
			body = m.typesList.View()
		}
	case viewResources:
		body = m.resourcesList.View()
	case viewAnnotate:
		body = m.viewAnnotate()
	}

	var status string
	switch {
	case m.loading:
		status = styleMuted().Render("loading…")
	case m.errMsg != "":
		status = styleError().Render(m.errMsg)
	case m.flash != "" && m.flashOK:
		status = styleOK().Render(m.flash)
	case m.flash != "":
		status = styleError().Render(m.flash)
	}

	footer := styleMuted().Render(m.footerHint())
	sections := []string{header, body}
	if status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, footer)
	return strings.Join(sections, "\n\n")
}

func (m appModel) viewAnnotate() string {
	leftWidth := m.width / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	rightWidth := m.width - leftWidth - 2
	if rightWidth < 30 {
		rightWidth = 30
	}

	current := "current: "
	if m.form.Current.Known {
		current += m.form.Current.Display
	} else {
		current += styleError().Render("could not fetch current value")
	}

	var valueArea string
	switch {
	case !m.canEdit:
		valueArea = styleMuted().Render("You do not have edit access to this project.")
	case m.form.Widget.Kind == annotate.WidgetText:
		valueArea = m.input.View()
		if m.form.Defaults.Help != "" {
			valueArea += "\n" + styleMuted().Render(m.form.Defaults.Help)
		}
	default:
		valueArea = m.optionsList.View()
	}

	left := strings.Join([]string{
		styleMuted().Render("annotating " + m.sel.ProjectID),
		m.keysList.View(),
		current,
		valueArea,
	}, "\n\n")

	if m.sel.ResourceType == nav.ResourceWiki && m.wikiMD != "" {
		right := renderMarkdown(m.wikiMD, rightWidth)
		return lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(leftWidth).Render(left),
			lipgloss.NewStyle().Width(rightWidth).Render(right),
		)
	}
	return left
}
