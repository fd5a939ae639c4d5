// Package apperror defines the failure taxonomy of chat operations.
//
// Every failure carries a user-facing message. The dispatch boundary
// delivers that message to the originating connection only.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindState
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrState          = &Error{Kind: KindState}
	ErrPersistence    = &Error{Kind: KindPersistence}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func Authentication(format string, args ...any) *Error {
	return newError(KindAuthentication, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func State(format string, args ...any) *Error {
	return newError(KindState, format, args...)
}

// Persistence wraps a storage failure. Its message stays generic.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: GenericMessage, Err: err}
}

// GenericMessage is shown for failures whose details must not reach users.
const GenericMessage = "Something went wrong, please try again."

// KindOf reports the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// UserMessage returns the text the originating session should see for err.
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindPersistence && appErr.Message != "" {
		return appErr.Message
	}
	return GenericMessage
}
