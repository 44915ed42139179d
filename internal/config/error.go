package config

import (
	"errors"
	"fmt"
)

// Error is a fatal startup-configuration failure: a bad flag value, a
// missing required flag, or an unusable input/output folder. The CLI
// reports it together with the usage text and exits non-zero before any
// file is processed, as opposed to per-file invocation failures which are
// never fatal.
type Error struct {
	msg string
	err error
}

// Errorf builds a configuration error from a format string.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

// IsError reports whether err is (or wraps) a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
