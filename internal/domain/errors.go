package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the orchestrator, the config loader
// and the telegram client unwraps to exactly one of these.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrConfig          = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrAmbiguous       = errors.New("ambiguous reference")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUpstream        = errors.New("telegram error")
)

// OpError attaches an operation name and kind to an optional cause.
// Msg is human-readable context; Err is kept verbatim so upstream messages
// are not masked.
type OpError struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Msg == "" && e.Err == nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Invalid returns an ErrInvalidArgument error.
func Invalid(op, format string, args ...any) error {
	return &OpError{Op: op, Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a chat, sender or message reference that resolved to nothing.
type NotFoundError struct {
	What  string // "chat", "sender", "message"
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Query)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AmbiguousError reports a reference that matched several candidates.
type AmbiguousError struct {
	What       string
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	quoted := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("%s %q is ambiguous, matches: %s", e.What, e.Query, strings.Join(quoted, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }
