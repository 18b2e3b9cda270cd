package content

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty               = errors.New("content is empty")
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidCoordinates  = errors.New("coordinates out of range")
	ErrUnknownKind         = errors.New("unknown content type")
	ErrUnsupportedSecurity = errors.New("unsupported wifi security")
)

// ValidationError reports a descriptor field that could not be encoded.
// The wrapped error is always one of the sentinel errors of this package.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
