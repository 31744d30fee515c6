package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline failure classes. Every abandoned invocation fails under exactly
// one of these, so logs and tests can tell a validation failure apart from
// an analysis failure.
var (
	ErrConfig      = errors.New("configuration error")
	ErrPathParse   = errors.New("blob path parse error")
	ErrFetch       = errors.New("blob fetch error")
	ErrAnalysis    = errors.New("document analysis error")
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
