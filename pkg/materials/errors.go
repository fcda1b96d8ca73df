package materials

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a lookup of a material or boundary that is not
// tracked. Callers must register before they look up.
type NotFoundError struct {
	Kind string // "material" or "boundary"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TrackingError is an internal-consistency fault: the kernel rejected a
// command against a resource the tracker expects to exist, or the mirror
// lost a record it had just ensured. It indicates a bug, not bad input.
type TrackingError struct {
	Op   string
	Name string
	Err  error
}

func (e *TrackingError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("tracking: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tracking: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *TrackingError) Unwrap() error {
	return e.Err
}

// ErrInvalidName is matched by every NameError.
var ErrInvalidName = errors.New("invalid material name")

// NameError rejects a material name that is reserved, or whose group or
// derived boundary names would clash with another name of the run.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("material name %q: %s", e.Name, e.Reason)
}

func (e *NameError) Is(target error) bool {
	return target == ErrInvalidName
}
