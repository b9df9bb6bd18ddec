// Package diag defines the error and diagnostic-callback vocabulary shared
// by every analysis engine (rule index, DTA, information flow).
package diag

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories a core entry point can return.
// This is the closed set from spec.md section 7; no other kind exists.
type Kind int

const (
	// InvalidInput covers null/out-of-range ids and an attribute passed
	// where a type is required.
	InvalidInput Kind = iota
	// MissingPermissionMap is returned by IF queries when no permission
	// map has been loaded.
	MissingPermissionMap
	// UnsupportedPolicyVersion is returned when a feature requires a
	// policy version the loaded view does not meet (e.g. DTA setexec
	// requires version >= 15).
	UnsupportedPolicyVersion
	// OutOfMemory is bubbled up from allocation sites; callers should
	// assume any partially built structure was fully torn down.
	OutOfMemory
	// MalformedConditional marks an RPN expression whose depth or
	// distinct-boolean count exceeds configured limits. Building does
	// not fail for this; only evaluation does, silently returning false.
	MalformedConditional
	// Truncated marks a random-BFS multi-path iterator that was
	// aborted before exhausting its search space.
	Truncated
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case MissingPermissionMap:
		return "MissingPermissionMap"
	case UnsupportedPolicyVersion:
		return "UnsupportedPolicyVersion"
	case OutOfMemory:
		return "OutOfMemory"
	case MalformedConditional:
		return "MalformedConditional"
	case Truncated:
		return "Truncated"
	default:
		return "Unknown"
	}
}

// Error is the typed error returned by every core entry point. It never
// appears half-initialized: an entry point either returns a complete
// result or an *Error, never both.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, diag.New(kind, "")) to match on Kind alone.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf reports the Kind of err if it (or something it wraps) is a
// *Error, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
