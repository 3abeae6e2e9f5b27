package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrIO       ErrorCode = "io"
	ErrSQL      ErrorCode = "sql"
	ErrCodec    ErrorCode = "codec"
	ErrFetch    ErrorCode = "fetch"
	ErrNotFound ErrorCode = "not_found"
	ErrUsage    ErrorCode = "usage"
	ErrConfig   ErrorCode = "config"
	ErrBackend  ErrorCode = "backend"
)

type Error struct {
	Code   ErrorCode
	Msg    string
	Entity string
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Code, e.Msg)
	if e.Entity != "" {
		base = fmt.Sprintf("%s (entity=%s)", base, e.Entity)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Msg: msg} }
func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// WrapEntity is Wrap with the entity type the failure relates to.
func WrapEntity(code ErrorCode, entity, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Entity: entity, Cause: cause}
}

// IsCode reports whether err, or anything it wraps, is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}
