package backend

import "errors"

var (
	// ErrNotFound indicates no registered backend matched the requested name.
	ErrNotFound = errors.New("backend: no integrator matches name")

	// ErrUnsupported indicates an operation the backend does not implement.
	ErrUnsupported = errors.New("backend: operation not supported by this backend")

	// ErrNotConfigured indicates Run/Step was called before Reset.
	ErrNotConfigured = errors.New("backend: reset must be called before integrating")
)
