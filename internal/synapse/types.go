package synapse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProjectRef is a row from the challenge project view: just enough to list
// and select a project.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Permissions struct {
	CanView     bool `json:"canView"`
	CanEdit     bool `json:"canEdit"`
	CanDownload bool `json:"canDownload"`
}

type WikiHeader struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parentId,omitempty"`
}

type WikiPage struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type ChildEntity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedOn string `json:"createdOn"`
}

// Entity is the minimal shape of a repo entity, used for display and for
// sanity-checking an id before mutating its annotations.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"concreteType"`
	Etag string `json:"etag"`
}

type UserProfile struct {
	OwnerID  string `json:"ownerId"`
	UserName string `json:"userName"`
}

// Child entity types accepted by the /entity/children filter.
const (
	TypeFolder     = "folder"
	TypeFile       = "file"
	TypeTable      = "table"
	TypeEntityView = "entityview"
)

type ValueKind int

const (
	ValueScalar ValueKind = iota
	ValueList
)

// Value is a normalized annotation value. The remote service represents
// values as typed string lists, but older payloads (and callers) sometimes
// hand us bare scalars. Everything is normalized into this tagged form at
// the wire boundary so downstream code never branches on dynamic shape.
type Value struct {
	Kind   ValueKind
	Type   string // wire value type ("STRING", "LONG", ...); defaults to STRING
	Values []string
}

func StringValue(s string) Value {
	return Value{Kind: ValueScalar, Type: "STRING", Values: []string{s}}
}

func ListValue(vals ...string) Value {
	return Value{Kind: ValueList, Type: "STRING", Values: vals}
}

// Empty reports whether the value carries no usable content.
func (v Value) Empty() bool {
	for _, s := range v.Values {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Display renders the value for humans: list values joined with ", ",
// scalars as-is.
func (v Value) Display() string {
	if v.Kind == ValueList {
		return strings.Join(v.Values, ", ")
	}
	if len(v.Values) == 0 {
		return ""
	}
	return v.Values[0]
}

// wireValue is the annotations2 representation: {"type": "...", "value": [...]}.
type wireValue struct {
	Type  string   `json:"type"`
	Value []string `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	typ := strings.TrimSpace(v.Type)
	if typ == "" {
		typ = "STRING"
	}
	vals := v.Values
	if vals == nil {
		vals = []string{}
	}
	return json.Marshal(wireValue{Type: typ, Value: vals})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	// Preferred: the annotations2 object form.
	var wv wireValue
	if err := json.Unmarshal(b, &wv); err == nil && wv.Type != "" {
		*v = Value{Kind: ValueList, Type: wv.Type, Values: wv.Value}
		if len(wv.Value) == 1 {
			v.Kind = ValueScalar
		}
		return nil
	}

	// Legacy shapes: a bare list or a bare scalar.
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		vals := make([]string, 0, len(list))
		for _, item := range list {
			vals = append(vals, fmt.Sprint(item))
		}
		*v = Value{Kind: ValueList, Type: "STRING", Values: vals}
		return nil
	}
	var scalar any
	if err := json.Unmarshal(b, &scalar); err != nil {
		return err
	}
	*v = Value{Kind: ValueScalar, Type: "STRING", Values: []string{fmt.Sprint(scalar)}}
	return nil
}

// Annotations is an entity's annotation map plus the id/etag pair the
// service requires for optimistic writes.
type Annotations struct {
	ID          string           `json:"id"`
	Etag        string           `json:"etag"`
	Annotations map[string]Value `json:"annotations"`
}

// Set overwrites key with a single-element list, the representation the
// service requires for annotation writes.
func (a *Annotations) Set(key, value string) {
	if a.Annotations == nil {
		a.Annotations = map[string]Value{}
	}
	a.Annotations[key] = ListValue(value)
}

// Get returns the value for key and whether it is present and non-empty.
func (a Annotations) Get(key string) (Value, bool) {
	v, ok := a.Annotations[key]
	if !ok || v.Empty() {
		return Value{}, false
	}
	return v, true
}

// HasAny reports whether any annotation key holds a non-empty value.
func (a Annotations) HasAny() bool {
	for _, v := range a.Annotations {
		if !v.Empty() {
			return true
		}
	}
	return false
}
