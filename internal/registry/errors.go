package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")
	// ErrConflict is matched by every ConflictError
	ErrConflict = errors.New("already exists")
	// ErrInvalidArgument is matched by every InvalidArgumentError
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind names the collection an error refers to
type Kind string

const (
	// KindResource identifies the resource collection
	KindResource Kind = "resource"
	// KindCapability identifies the capability collection
	KindCapability Kind = "capability"
	// KindSubscription identifies the subscription collection
	KindSubscription Kind = "subscription"
	// KindOwner identifies registered subscription owners
	KindOwner Kind = "owner"
	// KindCapabilityWatch identifies capability watches
	KindCapabilityWatch Kind = "capability watch"
)

// NotFoundError is returned when an id does not resolve
type NotFoundError struct {
	Kind Kind
	ID   string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound
func (*NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when registering an id that already exists
type ConflictError struct {
	Kind Kind
	ID   string
}

// Error returns the error message
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// Is reports whether target is ErrConflict
func (*ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidArgumentError is returned for malformed input such as an empty id,
// a non-http endpoint or params that do not match a capability schema.
type InvalidArgumentError struct {
	Kind   Kind
	ID     string
	Reason string
	Err    error
}

// Error returns the error message
func (e *InvalidArgumentError) Error() string {
	msg := fmt.Sprintf("invalid %s %q: %s", e.Kind, e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrInvalidArgument
func (*InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Unwrap returns the underlying cause, if any
func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}

func notFound(kind Kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func conflict(kind Kind, id string) error {
	return &ConflictError{Kind: kind, ID: id}
}

func invalid(kind Kind, id, reason string, err error) error {
	return &InvalidArgumentError{Kind: kind, ID: id, Reason: reason, Err: err}
}
