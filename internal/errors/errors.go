package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RetrievalUnavailable indicates the vector or graph store is
	// unreachable or timed out
	RetrievalUnavailable ErrorCode = "RETRIEVAL_UNAVAILABLE"
	// InferenceUnavailable indicates the LLM endpoint is down or timed out
	InferenceUnavailable ErrorCode = "INFERENCE_UNAVAILABLE"
	// MalformedInferenceOutput indicates the model response was not
	// parseable by any extraction strategy
	MalformedInferenceOutput ErrorCode = "MALFORMED_INFERENCE_OUTPUT"
	// InvalidRequest indicates the request was rejected before any
	// backend call
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// StoreError indicates an index store read failed
	StoreError ErrorCode = "STORE_ERROR"
	// Timeout indicates a branch exceeded its bounded timeout
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a coded error.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError when err
// carries no code.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return InternalError
}

// IsInvalidRequest reports whether err is a request-validation failure.
func IsInvalidRequest(err error) bool {
	return CodeOf(err) == InvalidRequest
}
