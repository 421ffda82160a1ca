// Package uploadErrors defines the failure taxonomy shared by every stage of the
// upload pipeline. Each stage returns an *Error carrying a Kind; the HTTP router
// and the CLI decide status codes and retry behaviour from the Kind alone.
package uploadErrors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindUnknown       Kind = "internal"
	KindConfiguration Kind = "configuration"
	KindMalformedKey  Kind = "malformed_key"
	KindInvalidKey    Kind = "invalid_key"
	KindValidation    Kind = "validation"
	KindNetwork       Kind = "network"
	KindSigning       Kind = "signing"
	KindRejected      Kind = "rejected"
	KindTransient     Kind = "transient"
)

func (k Kind) String() string {
	return string(k)
}

// Error is a classified pipeline failure. Message must never contain key material.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" && msg == "" {
		msg = fmt.Sprintf("invalid field %q", e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so errors.Is(err, &Error{Kind: KindRejected}) works
// through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Configuration(format string, args ...interface{}) *Error {
	return newError(KindConfiguration, nil, format, args...)
}

func MalformedKey(err error, format string, args ...interface{}) *Error {
	return newError(KindMalformedKey, err, format, args...)
}

// InvalidKeyField reports a JWK field that is missing, empty or wrong-typed.
func InvalidKeyField(field, format string, args ...interface{}) *Error {
	e := newError(KindInvalidKey, nil, format, args...)
	e.Field = field
	return e
}

func InvalidKey(err error, format string, args ...interface{}) *Error {
	return newError(KindInvalidKey, err, format, args...)
}

// ValidationField reports a caller-supplied field that failed validation.
func ValidationField(field, format string, args ...interface{}) *Error {
	e := newError(KindValidation, nil, format, args...)
	e.Field = field
	return e
}

func Validation(err error, format string, args ...interface{}) *Error {
	return newError(KindValidation, err, format, args...)
}

func Network(err error, format string, args ...interface{}) *Error {
	return newError(KindNetwork, err, format, args...)
}

func Signing(err error, format string, args ...interface{}) *Error {
	return newError(KindSigning, err, format, args...)
}

func Rejected(format string, args ...interface{}) *Error {
	return newError(KindRejected, nil, format, args...)
}

func Transient(err error, format string, args ...interface{}) *Error {
	return newError(KindTransient, err, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether a caller may retry the whole upload.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTransient:
		return true
	default:
		return false
	}
}

// PublicMessage is the message safe to return to HTTP callers.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}
