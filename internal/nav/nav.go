// Package nav holds the per-session navigation state machine.
//
// SelectionState is an explicit, serializable value; transitions are pure
// functions returning the next state, so the machine is testable without
// any UI or remote service attached.
package nav

import "strings"

type ResourceType string

const (
	ResourceNone   ResourceType = ""
	ResourceWiki   ResourceType = "wiki"
	ResourceFolder ResourceType = "folder"
	ResourceTable  ResourceType = "table"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceWiki, ResourceFolder, ResourceTable:
		return true
	}
	return false
}

func (t ResourceType) Label() string {
	switch t {
	case ResourceWiki:
		return "Wiki Pages"
	case ResourceFolder:
		return "Folders"
	case ResourceTable:
		return "Tables"
	}
	return ""
}

// ParseResourceType accepts both the enum values and the display labels.
func ParseResourceType(s string) ResourceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wiki", "wiki pages", "wikipage":
		return ResourceWiki
	case "folder", "folders":
		return ResourceFolder
	case "table", "tables":
		return ResourceTable
	}
	return ResourceNone
}

type Screen int

const (
	ScreenProjectList Screen = iota
	ScreenProjectSelected
	ScreenResourceSelected
)

func (s Screen) String() string {
	switch s {
	case ScreenProjectSelected:
		return "project"
	case ScreenResourceSelected:
		return "resource"
	default:
		return "projects"
	}
}

// SelectionState is everything the UI needs to decide what to render.
// The zero value is the initial "no project selected" state.
type SelectionState struct {
	ProjectID   string `json:"projectId,omitempty"`
	ProjectName string `json:"projectName,omitempty"`

	ResourceType  ResourceType `json:"resourceType,omitempty"`
	ResourceID    string       `json:"resourceId,omitempty"`
	ResourceTitle string       `json:"resourceTitle,omitempty"`
}

// Screen derives which screen the state renders.
func (s SelectionState) Screen() Screen {
	if s.ProjectID == "" {
		return ScreenProjectList
	}
	if s.ResourceType.Valid() && s.ResourceID != "" {
		return ScreenResourceSelected
	}
	return ScreenProjectSelected
}

// SelectProject enters a project from the list. Permission is re-verified
// by the caller on entry to the project screen, not at selection time.
func SelectProject(s SelectionState, id, name string) SelectionState {
	return SelectionState{ProjectID: strings.TrimSpace(id), ProjectName: strings.TrimSpace(name)}
}

// DeselectProject returns to the project list from any state.
func DeselectProject(SelectionState) SelectionState {
	return SelectionState{}
}

// SelectResourceType picks a resource category, dropping any concrete
// resource chosen under the previous category.
func SelectResourceType(s SelectionState, t ResourceType) SelectionState {
	s.ResourceType = t
	s.ResourceID = ""
	s.ResourceTitle = ""
	return s
}

// SelectResource picks a concrete resource within the current project.
func SelectResource(s SelectionState, t ResourceType, id, title string) SelectionState {
	s.ResourceType = t
	s.ResourceID = strings.TrimSpace(id)
	s.ResourceTitle = strings.TrimSpace(title)
	return s
}

// SwitchProject moves to another project. Resource ids are scoped to a
// project, so the prior resource selection is always cleared.
func SwitchProject(s SelectionState, id, name string) SelectionState {
	return SelectProject(s, id, name)
}
