// Package errors defines the coded error kinds shared across the relay bot.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown     = "UNKNOWN"
	CodeStore       = "STORE"
	CodeValidation  = "VALIDATION"
	CodeExternalAPI = "EXTERNAL_API"
	CodeNotFound    = "NOT_FOUND"
	CodeConfig      = "CONFIG"
)

// ErrThreadNotFound marks a staff thread that no longer exists on the platform.
var ErrThreadNotFound = errors.New("thread not found")

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// baseError carries the code, message and cause shared by every kind.
type baseError struct {
	code    string
	message string
	err     error
}

func (e *baseError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *baseError) Code() string {
	return e.code
}

func (e *baseError) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't carry one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// StoreError reports a failed persistence call.
type StoreError struct{ baseError }

func NewStoreError(message string, cause error) error {
	return &StoreError{baseError{code: CodeStore, message: message, err: cause}}
}

// ValidationError reports malformed input such as an unparsable body or token.
type ValidationError struct{ baseError }

func NewValidationError(message string, cause error) error {
	return &ValidationError{baseError{code: CodeValidation, message: message, err: cause}}
}

// ExternalAPIError reports an outward call that was rejected or failed.
type ExternalAPIError struct{ baseError }

func NewExternalAPIError(message string, cause error) error {
	return &ExternalAPIError{baseError{code: CodeExternalAPI, message: message, err: cause}}
}

// NotFoundError reports a missing user or thread.
type NotFoundError struct{ baseError }

func NewNotFoundError(message string, cause error) error {
	return &NotFoundError{baseError{code: CodeNotFound, message: message, err: cause}}
}

type ConfigError struct{ baseError }

func NewConfigError(message string, cause error) error {
	return &ConfigError{baseError{code: CodeConfig, message: message, err: cause}}
}
