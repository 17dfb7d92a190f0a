package graph

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes structural graph errors.
type ErrorCode string

const (
	// CodeDuplicateID indicates an insert of an id that already exists.
	CodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// CodeRootMismatch indicates a second root, a malformed root, or an
	// attempt to remove the root.
	CodeRootMismatch ErrorCode = "ROOT_MISMATCH"

	// CodeUnknownParent indicates a non-root node whose root_ref is absent.
	CodeUnknownParent ErrorCode = "UNKNOWN_PARENT"

	// CodeUnknownNode indicates a reference to an id that is not in the graph.
	CodeUnknownNode ErrorCode = "UNKNOWN_NODE"

	// CodeSelfLoop indicates an edge from a node to itself.
	CodeSelfLoop ErrorCode = "SELF_LOOP"

	// CodeCycleDetected indicates an edge that would close a cycle.
	CodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// CodeIDMismatch indicates a node whose id is not its content hash.
	CodeIDMismatch ErrorCode = "ID_MISMATCH"

	// CodeInvalidEdge indicates an unknown edge type.
	CodeInvalidEdge ErrorCode = "INVALID_EDGE"

	// CodeCorruptSnapshot indicates an encoding that cannot be a valid graph.
	CodeCorruptSnapshot ErrorCode = "CORRUPT_SNAPSHOT"
)

// Error is a structural validation failure. It is always returned before any
// mutation happens, so the graph is unchanged when one is observed.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the graph operation that failed (insert, link, remove, ...).
	Op string

	// ID is the offending node id, if any.
	ID string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.ID != "":
		return fmt.Sprintf("%s %s: %s (id=%s)", e.Op, e.Code, e.Message, e.ID)
	case e.Op != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is regardless of Op and ID.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrDuplicateID     = &Error{Code: CodeDuplicateID, Message: "duplicate id"}
	ErrRootMismatch    = &Error{Code: CodeRootMismatch, Message: "root mismatch"}
	ErrUnknownParent   = &Error{Code: CodeUnknownParent, Message: "unknown parent"}
	ErrUnknownNode     = &Error{Code: CodeUnknownNode, Message: "unknown node"}
	ErrSelfLoop        = &Error{Code: CodeSelfLoop, Message: "self loop"}
	ErrCycleDetected   = &Error{Code: CodeCycleDetected, Message: "cycle detected"}
	ErrIDMismatch      = &Error{Code: CodeIDMismatch, Message: "id mismatch"}
	ErrInvalidEdge     = &Error{Code: CodeInvalidEdge, Message: "invalid edge"}
	ErrCorruptSnapshot = &Error{Code: CodeCorruptSnapshot, Message: "corrupt snapshot"}
)

func newError(code ErrorCode, op, id, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, ID: id, Message: fmt.Sprintf(format, args...)}
}

// IsCycleError returns true if the error is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a graph error.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
