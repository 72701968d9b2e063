package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Resource names used in errors.
const (
	ResourceCollection = "collection"
	ResourceItem       = "item"
)

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Resource   string
	ID         string
	Collection string
}

func (e *NotFoundError) Error() string {
	if e.Resource == ResourceItem {
		return fmt.Sprintf("item %q not found in collection %q", e.ID, e.Collection)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports an identity collision on create.
type ConflictError struct {
	Resource   string
	ID         string
	Collection string
}

func (e *ConflictError) Error() string {
	if e.Resource == ResourceItem {
		return fmt.Sprintf("item %q already exists in collection %q", e.ID, e.Collection)
	}
	return fmt.Sprintf("%s %q already exists", e.Resource, e.ID)
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// BackendError wraps a storage failure unrelated to business rules.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// CollectionNotFound builds a NotFoundError for a collection.
func CollectionNotFound(id string) error {
	return &NotFoundError{Resource: ResourceCollection, ID: id}
}

// ItemNotFound builds a NotFoundError for an item.
func ItemNotFound(collectionID, id string) error {
	return &NotFoundError{Resource: ResourceItem, ID: id, Collection: collectionID}
}

// CollectionConflict builds a ConflictError for a collection.
func CollectionConflict(id string) error {
	return &ConflictError{Resource: ResourceCollection, ID: id}
}

// ItemConflict builds a ConflictError for an item.
func ItemConflict(collectionID, id string) error {
	return &ConflictError{Resource: ResourceItem, ID: id, Collection: collectionID}
}

// Backend wraps err as a BackendError unless it is nil or already a known kind.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
