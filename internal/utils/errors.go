package utils

import (
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned by repositories when a lookup or a
// conditional update matches no document.
var ErrDocumentNotFound = errors.New("document not found")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an absent entity or a conditional update that matched nothing.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

// DatabaseError wraps a failure of the underlying document store.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// BusinessError reports a request that is well-formed but violates a ride rule.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func NewNotFoundErrorf(resource, format string, args ...interface{}) error {
	return &NotFoundError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

func NewBusinessError(message string) error {
	return &BusinessError{Message: message}
}

// WrapStoreError converts a repository error: not-found sentinels become a
// NotFoundError for resource, everything else a DatabaseError.
func WrapStoreError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDocumentNotFound) {
		return NewNotFoundError(resource)
	}
	return &DatabaseError{Op: op, Err: err}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsDatabaseError(err error) bool {
	var target *DatabaseError
	return errors.As(err, &target)
}

func IsBusinessError(err error) bool {
	var target *BusinessError
	return errors.As(err, &target)
}
