// Package corerr defines the orchestrator's error taxonomy. Every public
// operation returns errors of this shape so transport adapters can map
// them to protocol-specific responses without inspecting error strings.
package corerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the classes of failure the core can report.
type Kind string

const (
	NotFound          Kind = "NotFound"
	PermissionDenied  Kind = "PermissionDenied"
	InvalidInput      Kind = "InvalidInput"
	BudgetExceeded    Kind = "BudgetExceeded"
	UpstreamFailure   Kind = "UpstreamFailure"
	ToolError         Kind = "ToolError"
	MissingDependency Kind = "MissingDependency"
	Cancelled         Kind = "Cancelled"
)

// ToolKind further classifies a ToolError.
type ToolKind string

const (
	ToolNotFound      ToolKind = "NotFound"
	ToolInvalidArgs   ToolKind = "InvalidArgs"
	ToolHandlerFailed ToolKind = "HandlerFailure"
	ToolTimeout       ToolKind = "Timeout"
)

// Error is the structured error type returned by every public operation.
type Error struct {
	Kind     Kind
	ToolKind ToolKind // only meaningful when Kind == ToolError
	Detail   string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, corerr.New(corerr.NotFound, "")) style
// comparisons: any *Error target with the same Kind matches.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func NewTool(kind ToolKind, detail string) *Error {
	return &Error{Kind: ToolError, ToolKind: kind, Detail: detail}
}

func WrapTool(kind ToolKind, detail string, cause error) *Error {
	return &Error{Kind: ToolError, ToolKind: kind, Detail: detail, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to UpstreamFailure for
// errors that did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UpstreamFailure
}
