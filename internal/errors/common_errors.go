package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNotFound      ErrorType = "NOT_FOUND"
	ErrTypeUnparsable    ErrorType = "UNPARSABLE"
	ErrTypeShape         ErrorType = "SHAPE"
	ErrTypeMalformedUnit ErrorType = "MALFORMED_UNIT"
	ErrTypeNetwork       ErrorType = "NETWORK"
	ErrTypeContract      ErrorType = "CONTRACT"
	ErrTypeStorage       ErrorType = "STORAGE"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeUnknown       ErrorType = "UNKNOWN"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type, so typed sentinels such as
// ErrNotFound work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Type sentinels for errors.Is checks
var (
	ErrNotFound      = &AppError{Type: ErrTypeNotFound}
	ErrUnparsable    = &AppError{Type: ErrTypeUnparsable}
	ErrShape         = &AppError{Type: ErrTypeShape}
	ErrMalformedUnit = &AppError{Type: ErrTypeMalformedUnit}
	ErrNetwork       = &AppError{Type: ErrTypeNetwork}
	ErrContract      = &AppError{Type: ErrTypeContract}
)

// TypeOf returns the ErrorType of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// ContextValue returns a context value of the first AppError in err's chain
func ContextValue(err error, key string) (interface{}, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Context == nil {
		return nil, false
	}
	v, ok := appErr.Context[key]
	return v, ok
}

// NewNotFoundError reports a missing resource or sentinel
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewUnparsableError reports a file whose layout cannot be interpreted
func NewUnparsableError(message string, cause error) *AppError {
	return NewAppError(ErrTypeUnparsable, message, cause)
}

// NewShapeError reports a column count that matches no known layout
func NewShapeError(got, expected int) *AppError {
	return NewAppError(ErrTypeShape, fmt.Sprintf("row width %d does not match expected %d", got, expected), nil).
		WithContext("width", got).
		WithContext("expected_width", expected)
}

// NewMalformedUnitError reports a unit row without a usable unit number
func NewMalformedUnitError(label string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedUnit, fmt.Sprintf("unit row %q has no integral unit number", label), cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewHTTPStatusError reports an unexpected HTTP status for url
func NewHTTPStatusError(url string, status int) *AppError {
	return NewAppError(ErrTypeNetwork, fmt.Sprintf("unexpected status %d", status), nil).
		WithContext("url", url).
		WithContext("response_code", status)
}

// NewContractError reports a remote response that broke the {data: [...]} contract
func NewContractError(message string, cause error) *AppError {
	return NewAppError(ErrTypeContract, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
