// Package failure defines the error taxonomy shared by the session core and
// the HTTP boundary.
//
// Every error returned by a core operation is an *Error whose Kind is one of
// the sentinel values below. Callers test kinds with errors.Is and map them to
// transport codes with Status.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kinds.
var (
	ErrNotFound           = errors.New("session not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnsupportedKind    = errors.New("unsupported computer kind")
	ErrUnknownAction      = errors.New("unknown action")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendInvocation  = errors.New("backend invocation failed")
	ErrAgentExecution     = errors.New("agent execution failed")
	ErrBackendTimeout     = errors.New("backend timed out")
)

// Error is a classified failure. Message is the short client-facing text and
// Err the underlying cause, if any.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.text())
	if e.Err != nil && e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Kind != nil:
		return e.Kind.Error()
	default:
		return "unknown failure"
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// New creates an error of the given kind with a client-facing message.
func New(kind error, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with formatting.
func Newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A context deadline anywhere in the chain
// reclassifies the failure as ErrBackendTimeout. Wrap returns nil for a nil err.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrBackendTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports a missing session.
func NotFound(op, sessionID string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: "Session not found: " + sessionID}
}

// KindOf returns the kind of the outermost *Error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// Status maps an error to an HTTP status code. Only the outermost
// classification counts, so an agent failure caused by a bad action is still
// a server error.
func Status(err error) int {
	switch KindOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidRequest, ErrUnsupportedKind, ErrUnknownAction:
		return http.StatusBadRequest
	case ErrBackendTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the short text suitable for an "error" response field.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.text()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Details renders the cause chain below the outermost error, one cause per
// line. It returns "" when there is nothing beyond the message.
func Details(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Err == nil {
		return ""
	}

	var lines []string
	for cause := e.Err; cause != nil; cause = next(cause) {
		lines = append(lines, cause.Error())
	}
	return strings.Join(lines, "\n")
}

func next(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case *Error:
		return u.Err
	default:
		return nil
	}
}
