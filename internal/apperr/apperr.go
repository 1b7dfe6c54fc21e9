// Package apperr defines the error kinds reported to callers of imsgstats.
//
// Every failure that crosses a tool or command boundary is classified as one
// of Permission, NotFound, InvalidInput or Internal. The user-facing message
// of a classified error never contains message bodies; it only repeats
// identifiers the caller supplied.
package apperr

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind classifies an error for the caller.
type Kind int

const (
	// Internal is any unclassified failure (query errors, scan errors).
	Internal Kind = iota
	// Permission means the operating system denied access to the store.
	Permission
	// NotFound means the store file or the requested contact does not exist.
	NotFound
	// InvalidInput means a required argument was missing or malformed.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// FullDiskAccessHint is appended to permission errors.
const FullDiskAccessHint = "Grant Full Disk Access to the app running imsgstats " +
	"(System Settings → Privacy & Security → Full Disk Access), then restart it."

// genericMessage is shown for errors that were never classified.
const genericMessage = "message store query failed"

// Error is a classified error. Msg is safe to show to the caller; the wrapped
// cause may contain driver detail and is only meant for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	trace error // eris wrap of Err, captured where the error was classified
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, cause error, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
	if cause != nil {
		e.trace = eris.Wrap(cause, kind.String())
	}
	return e
}

// Permissionf returns a Permission error with the Full Disk Access hint.
func Permissionf(cause error, format string, args ...any) error {
	e := newError(Permission, cause, format, args...)
	e.Msg += ". " + FullDiskAccessHint
	return e
}

// NotFoundf returns a NotFound error.
func NotFoundf(cause error, format string, args ...any) error {
	return newError(NotFound, cause, format, args...)
}

// InvalidInputf returns an InvalidInput error.
func InvalidInputf(format string, args ...any) error {
	return newError(InvalidInput, nil, format, args...)
}

// Internalf returns an Internal error whose message is shown to the caller.
func Internalf(cause error, format string, args ...any) error {
	return newError(Internal, cause, format, args...)
}

// KindOf reports the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the caller-safe text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return genericMessage
}

// Detail returns the full error chain with eris stack frames, for debug logs.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.trace != nil {
		return e.Error() + "\n" + eris.ToString(e.trace, true)
	}
	return err.Error()
}
