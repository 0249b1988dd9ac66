// Package apperr defines the error taxonomy shared by the Lambda handlers.
// Every error crossing a handler boundary is one of these kinds; the handler
// converts it to a status code and a human-readable message, and nothing
// propagates past the handler.
package apperr

import "errors"

// ValidationError indicates bad or missing caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates a referenced record is absent.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// DependencyError indicates an external service failure (record store,
// generation backend, or mail backend). Never retried.
type DependencyError struct {
	Message string
	Err     error
}

func (e *DependencyError) Error() string { return e.Message }
func (e *DependencyError) Unwrap() error { return e.Err }

// ParseError indicates generation output that could not be decoded into the
// expected shape.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string { return e.Message }
func (e *ParseError) Unwrap() error { return e.Err }

// Validation builds a ValidationError.
func Validation(message string) error { return &ValidationError{Message: message} }

// NotFound builds a NotFoundError.
func NotFound(message string) error { return &NotFoundError{Message: message} }

// Dependency builds a DependencyError wrapping the underlying failure.
func Dependency(message string, err error) error {
	return &DependencyError{Message: message, Err: err}
}

// Parse builds a ParseError wrapping the underlying failure.
func Parse(message string, err error) error {
	return &ParseError{Message: message, Err: err}
}

// StatusOf maps an error to its HTTP-style status code. Unknown errors map
// to 500.
func StatusOf(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return 400
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return 404
	}
	return 500
}
