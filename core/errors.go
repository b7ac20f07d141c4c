package core

import "github.com/pkg/errors"

// FieldError attaches a validation failure to a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries field-level failures raised outside the validator,
// such as uniqueness checks.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown means the process can no longer serve requests, typically after
// losing its database connection.
type shutdown struct {
	message string
}

// NewShutdownError returns an error the API error handler treats as a signal
// to stop the server gracefully.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err is, or wraps, a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
