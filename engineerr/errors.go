// Package engineerr defines the classified error taxonomy shared by every
// component of the query engine, so callers can branch on Kind without
// string-matching messages.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for machine-readable handling. The zero value is
// never used on a returned error.
type Kind string

const (
	// Input errors: caller gave the engine something it couldn't parse.
	KindQuerySyntax   Kind = "query_syntax"
	KindBadRegex      Kind = "bad_regex"
	KindBadDate       Kind = "bad_date"
	KindInvalidPeriod Kind = "invalid_period"
	KindInvalidFilter Kind = "invalid_filter"

	// Corpus errors.
	KindCorpusMissing   Kind = "corpus_missing"
	KindFileUnreadable  Kind = "file_unreadable"
	KindRecordMalformed Kind = "record_malformed"

	// Operational.
	KindCancelled   Kind = "cancelled"
	KindEmptyCorpus Kind = "empty_corpus"

	// Internal invariant violations. Never raised on user input.
	KindBug Kind = "bug"
)

// Error is the engine's classified error type. It carries a human-readable
// message, a machine-readable Kind, and optionally the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Path    string // set for FileUnreadable / RecordMalformed
	Line    int    // RecordMalformed: 1-based line; QuerySyntax/BadRegex: 0-based rune offset in the query
	Err     error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s: %s (%s:%d)", e.Kind, e.Message, e.Path, e.Line)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a classified error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithPath attaches a file path to the error for diagnostics.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithLine attaches a line number or query offset (see Line) to the error
// for diagnostics.
func (e *Error) WithLine(line int) *Error {
	e.Line = line
	return e
}

// Is implements errors.Is matching by Kind so callers can do
// errors.Is(err, engineerr.New(engineerr.KindCancelled, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err, or "" if err is not a classified Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
