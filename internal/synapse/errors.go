package synapse

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindFetch Kind = iota
	KindAuth
	KindPermission
	KindNotFound
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not-found"
	case KindWrite:
		return "write"
	default:
		return "fetch"
	}
}

// Error is the typed failure returned by every client method. Callers
// branch on Kind instead of parsing messages or catching panics.
type Error struct {
	Kind   Kind
	Op     string // e.g. "getAnnotations"
	Status int    // HTTP status, 0 for transport failures
	Reason string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("synapse: %s: %s (HTTP %d): %s", e.Op, e.Kind, e.Status, e.Reason)
	}
	return fmt.Sprintf("synapse: %s: %s: %s", e.Op, e.Kind, e.Reason)
}

// KindOf classifies any error: synapse errors report their own kind,
// everything else counts as a fetch failure.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindFetch
}
