package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means the record changed under a compound write, e.g. a
	// transaction whose status no longer matches the expected one.
	ErrConflict = errors.New("record changed concurrently")
)

// ValidationError reports bad user input. It is raised before any store call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StoreError wraps a failed persistence call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError names the record that vanished. It matches ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Invalid builds a ValidationError for callers outside this package.
func Invalid(field string, err error) error {
	return invalid(field, err)
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// WrapStore wraps err as a StoreError unless it already carries a more
// specific classification.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) || errors.Is(err, ErrConflict) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
