// Package errs defines the domain error taxonomy shared by the pledge core.
//
// The kinds map to how callers must react: NotFound and NotPermitted are
// caller errors that must not be retried, BadRequest surfaces to the end
// user, Invariant marks a programming error, and Retryable wraps transient
// external failures that the job layer may retry with backoff.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindNotPermitted Kind = "not_permitted"
	KindBadRequest   Kind = "bad_request"
	KindInvariant    Kind = "invariant"
	KindRetryable    Kind = "retryable"
)

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing pledge/issue/split/org.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// NotPermitted reports a precondition or business-rule violation.
func NotPermitted(format string, args ...interface{}) error {
	return &Error{Kind: KindNotPermitted, Msg: fmt.Sprintf(format, args...)}
}

// BadRequest reports a user-facing violation, e.g. a spend limit.
func BadRequest(format string, args ...interface{}) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Invariant reports a programming error. Never retried.
func Invariant(format string, args ...interface{}) error {
	return &Error{Kind: KindInvariant, Msg: fmt.Sprintf(format, args...)}
}

// Retryable wraps a transient external failure so the job layer can
// retry it with backoff.
func Retryable(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindRetryable, Msg: fmt.Sprintf(format, args...), Err: err}
}

func is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsNotFound(err error) bool     { return is(err, KindNotFound) }
func IsNotPermitted(err error) bool { return is(err, KindNotPermitted) }
func IsBadRequest(err error) bool   { return is(err, KindBadRequest) }
func IsInvariant(err error) bool    { return is(err, KindInvariant) }
func IsRetryable(err error) bool    { return is(err, KindRetryable) }
