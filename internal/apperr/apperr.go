// Package apperr classifies engine failures for transport mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind partitions failures by how callers should treat them.
type Kind int

const (
	// KindValidation covers malformed or out-of-policy input.
	KindValidation Kind = iota + 1
	// KindNotFound means a referenced record does not exist.
	KindNotFound
	// KindConflict means a write lost an optimistic-concurrency race.
	KindConflict
	// KindMisconfigured means a required collaborator credential or setting
	// is absent.
	KindMisconfigured
	// KindUnexpected is everything else; messages are truncated before
	// leaving the process.
	KindUnexpected
)

// maxUnexpectedMessage bounds how much of an unexpected error's message is
// exposed to callers.
const maxUnexpectedMessage = 500

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a client-input error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-record error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a concurrent-write error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Misconfigured builds a missing-configuration error.
func Misconfigured(format string, args ...any) *Error {
	return &Error{Kind: KindMisconfigured, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from err, defaulting to KindUnexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// HTTPStatus maps an error to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to expose for err. Unexpected
// errors are truncated to a bounded length.
func PublicMessage(err error) string {
	msg := err.Error()
	if KindOf(err) == KindUnexpected && len(msg) > maxUnexpectedMessage {
		msg = msg[:maxUnexpectedMessage]
	}
	return msg
}
