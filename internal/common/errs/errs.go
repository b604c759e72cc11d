// Package errs holds error kinds shared across packages so the HTTP layer can
// map them to status codes without importing every producer.
package errs

import "errors"

// dependencyUnavailableError signals a missing external dependency (ONNX Runtime,
// llama.cpp, a remote API) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err (or anything it wraps) indicates a
// missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}

// invalidInputError marks client mistakes (bad upload, undecodable image).
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err (or anything it wraps) was caused by bad input.
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}
