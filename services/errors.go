package services

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/troydota/api.opinion.komodohype.dev/store"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInsufficientResource
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInsufficientResource:
		return "INSUFFICIENT_RESOURCE"
	case KindValidation:
		return "VALIDATION"
	}
	return "INTERNAL"
}

// Error is what every service operation fails with. Callers branch on Kind;
// Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInsufficientResource = &Error{Kind: KindInsufficientResource}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare kind sentinels (ErrNotFound, ...) against any error of
// the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func invalid(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func insufficient(format string, args ...interface{}) *Error {
	return newError(KindInsufficientResource, format, args...)
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf reports the Kind of err, KindInternal for anything that is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// wrap turns a store or driver error into an *Error. Errors that already are
// one pass through untouched.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "not found", Err: err}
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConflict, Message: "conflicting write, retry", Err: err}
	case errors.Is(err, store.ErrDeletePrevented):
		return &Error{Kind: KindConflict, Message: "still referenced", Err: err}
	}
	return internal(err)
}
