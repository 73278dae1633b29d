package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Well-known error codes shared across packages.
const (
	CodeInternal         = "INTERNAL"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeNotImplemented   = "NOT_IMPLEMENTED"
)

// AppError is the structured error carried across package boundaries.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

// New creates an AppError with the given code, message and optional cause.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Wrap attaches a message to an existing error, preserving its code if it
// is already an *AppError, or tagging it CodeInternal otherwise.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	code := CodeInternal
	var ae *AppError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	return &AppError{Code: code, Message: message, Cause: err}
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

// Is allows errors.Is(err, target) to match on error code.
func (e *AppError) Is(target error) bool {
	var ae *AppError
	if errors.As(target, &ae) {
		return ae.Code == e.Code
	}
	return false
}

// HTTPStatus maps the error code to the closest HTTP status code.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus maps the error code to the closest gRPC status code.
func (e *AppError) GRPCStatus() codes.Code {
	switch e.Code {
	case CodeInvalidArgument:
		return codes.InvalidArgument
	case CodeNotFound:
		return codes.NotFound
	case CodeAlreadyExists:
		return codes.AlreadyExists
	case CodeUnauthorized:
		return codes.Unauthenticated
	case CodeUnavailable:
		return codes.Unavailable
	case CodeResourceExhausted:
		return codes.ResourceExhausted
	case CodeNotImplemented:
		return codes.Unimplemented
	default:
		return codes.Internal
	}
}

// CodeOf returns the code of err if it is (or wraps) an *AppError, else "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
