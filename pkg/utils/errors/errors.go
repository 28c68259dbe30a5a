package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidParameter represents a parameter outside its domain
	ErrorTypeInvalidParameter
	// ErrorTypeInsufficientData represents a series too short to estimate from
	ErrorTypeInsufficientData
	// ErrorTypeDegenerateSample represents a sample that cannot yield a tail mean
	ErrorTypeDegenerateSample
	// ErrorTypeNotFound represents a not found error
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInvalidParameter:
		return "invalid_parameter"
	case ErrorTypeInsufficientData:
		return "insufficient_data"
	case ErrorTypeDegenerateSample:
		return "degenerate_sample"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, keeping the type of the wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type anywhere in its chain
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// InvalidParameter creates a new InvalidParameter error
func InvalidParameter(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidParameter,
		Message: message,
	}
}

// InvalidParameterf creates a new InvalidParameter error with a formatted message
func InvalidParameterf(format string, args ...interface{}) error {
	return InvalidParameter(fmt.Sprintf(format, args...))
}

// InsufficientData creates a new InsufficientData error
func InsufficientData(message string) error {
	return &AppError{
		Type:    ErrorTypeInsufficientData,
		Message: message,
	}
}

// DegenerateSample creates a new DegenerateSample error
func DegenerateSample(message string) error {
	return &AppError{
		Type:    ErrorTypeDegenerateSample,
		Message: message,
	}
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}
