package rewrite

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes rewrite failures.
type ErrorCode string

const (
	// CodeUnboundTemplateVariable indicates a replacement or guard that
	// references a name neither bound by the pattern nor declared global.
	CodeUnboundTemplateVariable ErrorCode = "UNBOUND_TEMPLATE_VARIABLE"

	// CodeGuard indicates a guard that does not reduce to a boolean.
	CodeGuard ErrorCode = "GUARD"

	// CodeStaleView indicates candidates computed from a view of a graph
	// that has changed since.
	CodeStaleView ErrorCode = "STALE_VIEW"

	// CodeAlreadyCommitted indicates use of a committed transaction.
	CodeAlreadyCommitted ErrorCode = "ALREADY_COMMITTED"

	// CodeAlreadyRolledBack indicates use of a rolled back transaction.
	CodeAlreadyRolledBack ErrorCode = "ALREADY_ROLLED_BACK"

	// CodeConcurrentWrite indicates the graph changed between Begin and a
	// later step of a Transaction.
	CodeConcurrentWrite ErrorCode = "CONCURRENT_WRITE"

	// CodeInjectedFailure is raised by WithFailAfter.
	CodeInjectedFailure ErrorCode = "INJECTED_FAILURE"

	// CodeInvalidRule indicates a rule that cannot be added to a rule set.
	CodeInvalidRule ErrorCode = "INVALID_RULE"
)

// Error is a rewrite failure with enough context to locate it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// RuleID is the rule being applied, if any.
	RuleID string

	// NodeID is the node being rewritten, if any.
	NodeID string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.RuleID != "" && e.NodeID != "":
		return fmt.Sprintf("%s: %s (rule=%s, node=%s)", e.Code, e.Message, e.RuleID, e.NodeID)
	case e.RuleID != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is matches any *Error with the same code, so errors.Is works against the
// sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnboundTemplateVariable = &Error{Code: CodeUnboundTemplateVariable, Message: "unbound template variable"}
	ErrGuard                   = &Error{Code: CodeGuard, Message: "guard error"}
	ErrStaleView               = &Error{Code: CodeStaleView, Message: "stale view"}
	ErrAlreadyCommitted        = &Error{Code: CodeAlreadyCommitted, Message: "transaction already committed"}
	ErrAlreadyRolledBack       = &Error{Code: CodeAlreadyRolledBack, Message: "transaction already rolled back"}
	ErrConcurrentWrite         = &Error{Code: CodeConcurrentWrite, Message: "graph changed during transaction"}
	ErrInjectedFailure         = &Error{Code: CodeInjectedFailure, Message: "injected failure"}
	ErrInvalidRule             = &Error{Code: CodeInvalidRule, Message: "invalid rule"}
)

func newError(code ErrorCode, ruleID, nodeID, format string, args ...any) *Error {
	return &Error{Code: code, RuleID: ruleID, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

// AbortError reports a transaction that failed and was rolled back. The graph
// is byte-for-byte in its pre-transaction state when this is returned.
type AbortError struct {
	// Cause is the error that triggered the rollback.
	Cause error

	// Discarded is the number of modifications undone by the rollback.
	Discarded int

	// PreHash is the hash the graph was restored to.
	PreHash string
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("transaction aborted, %d modification(s) discarded: %v", e.Discarded, e.Cause)
}

// Unwrap returns the cause.
func (e *AbortError) Unwrap() error {
	return e.Cause
}

// IsAbort reports whether err is, or wraps, an *AbortError.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
