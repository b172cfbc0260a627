// Package web serves the browser dashboard: a project list backed by the
// challenge view, per-project resource browsing, and the annotation form.
//
// All data comes from the portal session layer on the request path. There
// is no background refresh; stale reads are resolved by the explicit
// refresh action.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/vpchung/challenge-portal-dashboard/internal/annotate"
	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/portal"
	"github.com/vpchung/challenge-portal-dashboard/internal/store"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const sessionCookieName = "portal_web_session"

type ServerConfig struct {
	Addr     string
	StateDir string // holds web/secret.key
	Portal   *portal.Session
	Sessions *store.Sessions
}

type Server struct {
	mu   sync.RWMutex
	cfg  ServerConfig
	tmpl *template.Template

	secret []byte
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.StateDir = strings.TrimSpace(cfg.StateDir)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.StateDir == "" {
		return nil, errors.New("web: state dir is empty")
	}
	if cfg.Portal == nil {
		return nil, errors.New("web: portal session is nil")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("web: session store is nil")
	}

	secret, err := loadOrInitSecretKey(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{cfg: cfg, tmpl: tmpl, secret: secret}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) portal() *portal.Session {
	s.mu.RLock()
	p := s.cfg.Portal
	s.mu.RUnlock()
	return p
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /static/app.js", s.handleAppJS)
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("POST /projects/{projectId}/select", s.handleProjectSelect)
	mux.HandleFunc("POST /projects/{projectId}/switch", s.handleProjectSwitch)
	mux.HandleFunc("POST /deselect", s.handleDeselect)
	mux.HandleFunc("POST /resource-type", s.handleResourceType)
	mux.HandleFunc("POST /resource", s.handleResource)
	mux.HandleFunc("GET /annotation/form", s.handleAnnotationForm)
	mux.HandleFunc("POST /annotate", s.handleAnnotate)
	return mux
}

// sessionFor resolves the browser session, minting a new signed cookie
// when the request carries none (or a stale one).
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (string, nav.SelectionState) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sp, err := verifyToken(s.secret, c.Value); err == nil {
			sel, err := s.cfg.Sessions.Load(r.Context(), sp.Sub)
			if err != nil {
				sel = nav.SelectionState{}
			}
			return sp.Sub, sel
		}
	}

	id, err := newSessionID()
	if err != nil {
		return "", nav.SelectionState{}
	}
	token, err := newSessionToken(s.secret, id, 30*24*time.Hour)
	if err != nil {
		return "", nav.SelectionState{}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nav.SelectionState{}
}

func (s *Server) saveSelection(r *http.Request, id string, sel nav.SelectionState) {
	if strings.TrimSpace(id) == "" {
		return
	}
	_ = s.cfg.Sessions.Save(r.Context(), id, sel)
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// patchElements answers a datastar-triggered request with a single
// fragment patch. Strictly request/response; the stream closes after
// the patch.
func patchElements(w http.ResponseWriter, r *http.Request, html, selector string, mode datastar.ElementPatchMode) {
	sse := datastar.NewSSE(w, r)
	_ = sse.PatchElements(html, datastar.WithSelector(selector), datastar.WithMode(mode))
}

type baseVM struct {
	Now    string
	ViewID string
}

func (s *Server) baseVM() baseVM {
	return baseVM{
		Now:    time.Now().Format(time.RFC3339),
		ViewID: s.portal().ViewID(),
	}
}

type homeVM struct {
	baseVM
	Projects []portal.Project
	Query    string
	Error    string
}

type projectsTableVM struct {
	Projects []portal.Project
	Query    string
	Error    string
}

type typeOption struct {
	Value  string
	Label  string
	Active bool
}

type resourceRow struct {
	ID    string
	Title string
}

type flashVM struct {
	OK      bool
	Message string
}

type formVM struct {
	Target   string // entity the annotation lands on
	Form     portal.Form
	IsSelect bool
	IsMulti  bool
	Options  []string
	Value    string          // value shown in the input or preselected option
	Picked   map[string]bool // multiselect checks
	Flash    flashVM
}

type projectVM struct {
	baseVM
	Selection nav.SelectionState
	Denied    bool // no edit access: the project screen is blocked
	Types     []typeOption
	Resources []resourceRow
	ListError string
	CanEdit   bool
	Form      *formVM
	WikiHTML  template.HTML
	Contents  []resourceRow
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.js")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) projectsTableVM(r *http.Request, query string) projectsTableVM {
	rows, err := s.portal().Projects(r.Context())
	vm := projectsTableVM{Query: query}
	if err != nil {
		vm.Error = "could not load the challenge project list: " + statusText(err)
		return vm
	}
	vm.Projects = portal.FilterProjects(rows, query)
	return vm
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	id, sel := s.sessionFor(w, r)
	_ = id

	if sel.Screen() == nav.ScreenProjectList {
		tv := s.projectsTableVM(r, "")
		s.writeHTMLTemplate(w, "home.html", homeVM{
			baseVM:   s.baseVM(),
			Projects: tv.Projects,
			Error:    tv.Error,
		})
		return
	}
	s.writeHTMLTemplate(w, "project.html", s.projectVM(r, sel))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	html, err := s.renderTemplate("projects_table.html", s.projectsTableVM(r, query))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	patchElements(w, r, html, "#project-table", datastar.ElementPatchModeOuter)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.portal().RefreshProjects()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	html, err := s.renderTemplate("projects_table.html", s.projectsTableVM(r, query))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	patchElements(w, r, html, "#project-table", datastar.ElementPatchModeOuter)
}

// projectNameFor resolves a display name from the cached rows so the
// header never shows a bare Synapse id when the listing is healthy.
func (s *Server) projectNameFor(r *http.Request, projectID string) string {
	rows, err := s.portal().Projects(r.Context())
	if err != nil {
		return projectID
	}
	for _, p := range rows {
		if p.ID == projectID {
			return p.Name
		}
	}
	return projectID
}

func (s *Server) handleProjectSelect(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.PathValue("projectId"))
	if projectID == "" {
		http.Error(w, "missing project id", http.StatusBadRequest)
		return
	}
	id, sel := s.sessionFor(w, r)
	sel = nav.SelectProject(sel, projectID, s.projectNameFor(r, projectID))
	s.saveSelection(r, id, sel)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProjectSwitch(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.PathValue("projectId"))
	if projectID == "" {
		http.Error(w, "missing project id", http.StatusBadRequest)
		return
	}
	id, sel := s.sessionFor(w, r)
	sel = nav.SwitchProject(sel, projectID, s.projectNameFor(r, projectID))
	s.saveSelection(r, id, sel)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	id, sel := s.sessionFor(w, r)
	sel = nav.DeselectProject(sel)
	s.saveSelection(r, id, sel)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleResourceType(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	t := nav.ParseResourceType(r.Form.Get("type"))
	if !t.Valid() {
		http.Error(w, "unknown resource type", http.StatusBadRequest)
		return
	}
	id, sel := s.sessionFor(w, r)
	if sel.ProjectID == "" || !s.portal().CanEdit(r.Context(), sel.ProjectID) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sel = nav.SelectResourceType(sel, t)
	s.saveSelection(r, id, sel)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	t := nav.ParseResourceType(r.Form.Get("type"))
	resourceID := strings.TrimSpace(r.Form.Get("id"))
	title := strings.TrimSpace(r.Form.Get("title"))
	if !t.Valid() || resourceID == "" {
		http.Error(w, "missing resource", http.StatusBadRequest)
		return
	}
	id, sel := s.sessionFor(w, r)
	if sel.ProjectID == "" || !s.portal().CanEdit(r.Context(), sel.ProjectID) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sel = nav.SelectResource(sel, t, resourceID, title)
	s.saveSelection(r, id, sel)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) formVM(r *http.Request, sel nav.SelectionState, key string, flash flashVM) *formVM {
	p := s.portal()
	form := p.AnnotationForm(r.Context(), sel, key)
	widget := form.Widget
	return &formVM{
		Target:   sel.ProjectID,
		Form:     form,
		IsSelect: widget.Kind == annotate.WidgetSelect,
		IsMulti:  widget.Kind == annotate.WidgetMultiSelect,
		Options:  widget.Options,
		Value:    form.Defaults.Value,
		Picked:   map[string]bool{},
		Flash:    flash,
	}
}

func (s *Server) projectVM(r *http.Request, sel nav.SelectionState) projectVM {
	p := s.portal()
	vm := projectVM{
		baseVM:    s.baseVM(),
		Selection: sel,
	}

	// Edit access is re-verified on entry, independent of the cached list
	// flag. Without it the whole project screen is blocked, not just the
	// annotation form.
	vm.CanEdit = p.CanEdit(r.Context(), sel.ProjectID)
	if !vm.CanEdit {
		vm.Denied = true
		return vm
	}

	for _, t := range []nav.ResourceType{nav.ResourceWiki, nav.ResourceFolder, nav.ResourceTable} {
		vm.Types = append(vm.Types, typeOption{
			Value:  string(t),
			Label:  t.Label(),
			Active: sel.ResourceType == t,
		})
	}

	if sel.ResourceType != nav.ResourceNone {
		children, err := p.Resources(r.Context(), sel.ProjectID, sel.ResourceType)
		if err != nil {
			vm.ListError = "could not list " + strings.ToLower(sel.ResourceType.Label()) + ": " + statusText(err)
		}
		for _, c := range children {
			vm.Resources = append(vm.Resources, resourceRow{ID: c.ID, Title: c.Name})
		}
	}

	if sel.Screen() == nav.ScreenResourceSelected {
		vm.Form = s.formVM(r, sel, "", flashVM{})
		switch sel.ResourceType {
		case nav.ResourceWiki:
			if page, err := p.WikiPage(r.Context(), sel.ProjectID, sel.ResourceID); err == nil {
				vm.WikiHTML = renderMarkdownHTML(page.Markdown)
			}
		case nav.ResourceFolder:
			if children, err := p.FolderContents(r.Context(), sel.ResourceID); err == nil {
				for _, c := range children {
					vm.Contents = append(vm.Contents, resourceRow{ID: c.ID, Title: c.Name})
				}
			}
		}
	}
	return vm
}

func (s *Server) handleAnnotationForm(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	_, sel := s.sessionFor(w, r)
	if sel.Screen() != nav.ScreenResourceSelected {
		http.Error(w, "no resource selected", http.StatusBadRequest)
		return
	}
	if !s.portal().CanEdit(r.Context(), sel.ProjectID) {
		http.Error(w, "no edit access on "+sel.ProjectID, http.StatusForbidden)
		return
	}
	html, err := s.renderTemplate("annotate_form.html", s.formVM(r, sel, key, flashVM{}))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	patchElements(w, r, html, "#annotation-form", datastar.ElementPatchModeOuter)
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, sel := s.sessionFor(w, r)
	if sel.Screen() != nav.ScreenResourceSelected {
		http.Error(w, "no resource selected", http.StatusBadRequest)
		return
	}
	if !s.portal().CanEdit(r.Context(), sel.ProjectID) {
		http.Error(w, "no edit access on "+sel.ProjectID, http.StatusForbidden)
		return
	}

	key := strings.TrimSpace(r.Form.Get("key"))
	value := strings.TrimSpace(r.Form.Get("value"))
	if picks := r.Form["values"]; len(picks) > 0 {
		value = annotate.JoinSelections(picks)
	}

	ok, msg := s.portal().Submit(r.Context(), sel.ProjectID, key, value)
	vm := s.formVM(r, sel, key, flashVM{OK: ok, Message: msg})
	if !ok {
		// Keep the attempted value in the re-rendered form for a retry.
		vm.Value = value
		for _, pick := range r.Form["values"] {
			vm.Picked[pick] = true
		}
	}
	html, err := s.renderTemplate("annotate_form.html", vm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	patchElements(w, r, html, "#annotation-form", datastar.ElementPatchModeOuter)
}

// statusText maps a directory error to a short operator-facing label.
func statusText(err error) string {
	switch synapse.KindOf(err) {
	case synapse.KindAuth:
		return "authentication failed"
	case synapse.KindPermission:
		return "permission denied"
	case synapse.KindNotFound:
		return "not found"
	case synapse.KindWrite:
		return "write conflict"
	default:
		return "fetch failed"
	}
}
