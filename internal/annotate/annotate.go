// Package annotate implements the annotation workflow: resolving a default
// key/value for the selected resource, reading the stored value, and the
// read-modify-write submit.
package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/vpchung/challenge-portal-dashboard/internal/nav"
	"github.com/vpchung/challenge-portal-dashboard/internal/synapse"
)

// Directory is the slice of the remote service the workflow needs.
type Directory interface {
	GetEntity(ctx context.Context, entityID string) (synapse.Entity, error)
	GetAnnotations(ctx context.Context, entityID string) (synapse.Annotations, error)
	SetAnnotations(ctx context.Context, entityID string, a synapse.Annotations) (synapse.Annotations, error)
}

type Defaults struct {
	Key   string
	Value string
	Help  string
}

// ResolveDefaults suggests the annotation key/value for a resource type.
// The suggestion seeds the form; the active key stays user-selectable.
func ResolveDefaults(t nav.ResourceType, resourceID, projectID string) Defaults {
	switch t {
	case nav.ResourceWiki:
		return Defaults{
			Key:   "documentationLink",
			Value: projectID + "/wiki/" + resourceID,
			Help:  "Link this Wiki page to the Project.",
		}
	case nav.ResourceFolder:
		return Defaults{
			Key:   "DataFolder",
			Value: resourceID,
			Help:  "Link this Folder to the Project.",
		}
	case nav.ResourceTable:
		return Defaults{
			Key:   "ChallengeTable",
			Value: resourceID,
			Help:  "Link this Table to the Project.",
		}
	}
	return Defaults{Key: "documentationLink"}
}

// OrderColumns pins "status" first and returns the index of the key the
// form should preselect: the resolved default when present, else
// documentationLink for wiki pages, else the first column.
func OrderColumns(cols []string, defaults Defaults, t nav.ResourceType) ([]string, int) {
	out := make([]string, 0, len(cols))
	hasStatus := false
	for _, c := range cols {
		if c == "status" {
			hasStatus = true
			continue
		}
		out = append(out, c)
	}
	if hasStatus {
		out = append([]string{"status"}, out...)
	}

	idx := 0
	for i, c := range out {
		if c == defaults.Key {
			idx = i
			break
		}
		if t == nav.ResourceWiki && c == "documentationLink" {
			idx = i
		}
	}
	return out, idx
}

type WidgetKind int

const (
	WidgetText WidgetKind = iota
	WidgetSelect
	WidgetMultiSelect
)

// Widget describes the input control for a key. Status is constrained to a
// fixed choice set; challenge types are a multi-selection joined with ", ".
type Widget struct {
	Kind    WidgetKind
	Options []string
}

var (
	statusOptions        = []string{"Active", "Upcoming", "Closed"}
	challengeTypeOptions = []string{"Data To Model", "Model to Data", "Project/Writeup"}
)

func WidgetFor(key string) Widget {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "status":
		return Widget{Kind: WidgetSelect, Options: statusOptions}
	case "challengetype":
		return Widget{Kind: WidgetMultiSelect, Options: challengeTypeOptions}
	}
	return Widget{Kind: WidgetText}
}

// JoinSelections builds the stored value for a multi-select widget. An
// empty selection is a valid (empty) value.
func JoinSelections(selected []string) string {
	return strings.Join(selected, ", ")
}

// EmptyDisplay marks a key with no stored value.
const EmptyDisplay = "(empty)"

// CurrentValue is the display form of a stored annotation value. Known is
// false when the fetch failed, which must stay distinguishable from a key
// that is merely unset.
type CurrentValue struct {
	Display string
	Known   bool
}

type Workflow struct {
	dir Directory
}

func NewWorkflow(dir Directory) Workflow {
	return Workflow{dir: dir}
}

// ReadCurrentValue fetches the entity's live annotation map and renders the
// value under key. This path never goes through the TTL cache so a submit
// is immediately visible to the next read.
func (w Workflow) ReadCurrentValue(ctx context.Context, entityID, key string) CurrentValue {
	annos, err := w.dir.GetAnnotations(ctx, entityID)
	if err != nil {
		return CurrentValue{Known: false}
	}
	v, ok := annos.Get(key)
	if !ok {
		return CurrentValue{Display: EmptyDisplay, Known: true}
	}
	return CurrentValue{Display: v.Display(), Known: true}
}

// Submit performs the atomic read-modify-write: fetch the live entity and
// its annotation record (not cached copies), overwrite the single key with
// a one-element list, and persist in one call. The service's etag check
// makes the update land entirely or not at all.
func (w Workflow) Submit(ctx context.Context, entityID, key, value string) (bool, string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, "Annotation key must not be empty."
	}

	// The entity read validates the target before anything is mutated; a
	// bad id or revoked access fails here, before the annotation write.
	entity, err := w.dir.GetEntity(ctx, entityID)
	if err != nil {
		return false, submitFailureMessage(entityID, err)
	}

	annos, err := w.dir.GetAnnotations(ctx, entity.ID)
	if err != nil {
		return false, submitFailureMessage(entityID, err)
	}
	annos.Set(key, value)
	if _, err := w.dir.SetAnnotations(ctx, entityID, annos); err != nil {
		return false, submitFailureMessage(entityID, err)
	}
	return true, fmt.Sprintf("Successfully added annotation %s to %s.", key, entityID)
}

func submitFailureMessage(entityID string, err error) string {
	switch synapse.KindOf(err) {
	case synapse.KindAuth:
		return "Failed to update annotation: credential rejected. Check your auth token."
	case synapse.KindPermission:
		return fmt.Sprintf("Failed to update annotation: no edit permission on %s.", entityID)
	case synapse.KindNotFound:
		return fmt.Sprintf("Failed to update annotation: %s was not found.", entityID)
	default:
		return "Failed to update annotation: " + err.Error()
	}
}
