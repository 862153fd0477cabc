package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")
)

// ResourceNotFoundError reports a lookup that matched no record. Error returns
// Message unchanged so callers can surface it verbatim.
type ResourceNotFoundError struct {
	Message string
}

func (e *ResourceNotFoundError) Error() string { return e.Message }

func (e *ResourceNotFoundError) Unwrap() error { return ErrNotFound }

func NewResourceNotFoundError(format string, args ...any) error {
	return &ResourceNotFoundError{Message: fmt.Sprintf(format, args...)}
}

// DuplicateResourceError reports a write that would break a uniqueness rule.
type DuplicateResourceError struct {
	Message string
}

func (e *DuplicateResourceError) Error() string { return e.Message }

func (e *DuplicateResourceError) Unwrap() error { return ErrAlreadyExists }

func NewDuplicateResourceError(format string, args ...any) error {
	return &DuplicateResourceError{Message: fmt.Sprintf(format, args...)}
}

// RequestValidationError reports a well-formed request that asks for nothing.
type RequestValidationError struct {
	Message string
}

func (e *RequestValidationError) Error() string { return e.Message }

func (e *RequestValidationError) Unwrap() error { return ErrValidation }

func NewRequestValidationError(message string) error {
	return &RequestValidationError{Message: message}
}

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {

	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
