// Package apperr defines the error kinds surfaced by the enrollment service
// and their fixed mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the request boundary.
type Kind int

const (
	// KindIO covers persistence and decode failures. It is the zero value so
	// that an unclassified error is treated as a server fault.
	KindIO Kind = iota
	KindAuth
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	default:
		return "io"
	}
}

// HTTPStatus returns the status code every error of kind k maps to.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NoIndex marks an error that is not tied to a specific image in a batch.
const NoIndex = -1

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Message string // client-facing message, returned verbatim in the envelope
	Index   int    // offending image index, or NoIndex
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind, so errors.Is(err, apperr.Validation)
// works against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && e.Kind == t.Kind
}

// Kind sentinels for errors.Is.
var (
	Auth       = &Error{Kind: KindAuth, Index: NoIndex}
	Validation = &Error{Kind: KindValidation, Index: NoIndex}
	IO         = &Error{Kind: KindIO, Index: NoIndex}
)

// New returns an error of kind k with a client-facing message.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message, Index: NoIndex}
}

// Newf is New with fmt formatting.
func Newf(k Kind, format string, args ...any) *Error {
	return New(k, fmt.Sprintf(format, args...))
}

// Wrap returns an error of kind k whose message is the cause's text.
func Wrap(k Kind, cause error) *Error {
	return &Error{Kind: k, Message: cause.Error(), Index: NoIndex, Cause: cause}
}

// AtIndex attaches a batch index to an error and prefixes the message with it.
func AtIndex(k Kind, index int, label string, cause error) *Error {
	return &Error{
		Kind:    k,
		Message: fmt.Sprintf("image %d (%s): %v", index, label, cause),
		Index:   index,
		Cause:   cause,
	}
}

// KindOf returns the kind of err. Unclassified errors are KindIO.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
