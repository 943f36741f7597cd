package errors

import (
	stderrors "errors"
	"fmt"
)

// NoPulsar marks an error that is not tied to a single pulsar
const NoPulsar = -1

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Pulsar is the index of the offending pulsar, NoPulsar otherwise
	Pulsar int
	// Matrix names the failing matrix or vector ("sigma", "basis", ...)
	Matrix string
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Pulsar != NoPulsar {
		msg = fmt.Sprintf("pulsar %d: %s", e.Pulsar, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Pulsar:  NoPulsar,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Pulsar:  NoPulsar,
			Matrix:  appErr.Matrix,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
		Pulsar:  NoPulsar,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
			Pulsar:  appErr.Pulsar,
			Matrix:  appErr.Matrix,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
		Pulsar:  NoPulsar,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if the chain holds an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// PulsarOf returns the innermost pulsar index recorded in the error chain
func PulsarOf(err error) int {
	idx := NoPulsar
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Pulsar != NoPulsar {
			idx = appErr.Pulsar
		}
		err = stderrors.Unwrap(err)
	}
	return idx
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeLinearAlgebra   = "LINEAR_ALGEBRA_ERROR"
	CodeShapeMismatch   = "SHAPE_MISMATCH"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	e := New(CodeDatabaseError, message)
	e.Cause = cause
	return e
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ExternalServiceError(service string, cause error) *AppError {
	e := New(CodeExternalService, fmt.Sprintf("%s service error", service))
	e.Cause = cause
	return e
}

// LinearAlgebra reports a factorization or solve failure on a named matrix
func LinearAlgebra(pulsar int, matrix, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    CodeLinearAlgebra,
		Message: fmt.Sprintf("%s: %s", matrix, fmt.Sprintf(format, args...)),
		Pulsar:  pulsar,
		Matrix:  matrix,
	}
}

// ShapeMismatch reports inconsistent dimensions on a named matrix or vector
func ShapeMismatch(pulsar int, matrix, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    CodeShapeMismatch,
		Message: fmt.Sprintf("%s: %s", matrix, fmt.Sprintf(format, args...)),
		Pulsar:  pulsar,
		Matrix:  matrix,
	}
}

// AtPulsar returns a copy of a pulsar-agnostic AppError bound to the given pulsar.
// Other errors are wrapped with the pulsar index and keep their code.
func AtPulsar(pulsar int, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok && appErr.Pulsar == NoPulsar {
		cp := *appErr
		cp.Pulsar = pulsar
		return &cp
	}
	wrapped := Wrap(err, "pulsar computation failed").(*AppError)
	wrapped.Pulsar = pulsar
	return wrapped
}

func IsLinearAlgebra(err error) bool {
	return GetCode(err) == CodeLinearAlgebra
}

func IsShapeMismatch(err error) bool {
	return GetCode(err) == CodeShapeMismatch
}

func IsNotFound(err error) bool {
	return GetCode(err) == CodeNotFound
}
