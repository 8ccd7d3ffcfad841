package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports invalid alignment or overlay input.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// ResolutionError reports an image reference that could not be turned into
// a displayable URL. Callers fall back to the placeholder image.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve image %q: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PersistenceError reports a failed load, save or delete against the store.
type PersistenceError struct {
	Op        string
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s map config for project %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
