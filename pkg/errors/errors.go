package errors

import (
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so wrapped errors compare equal to the predefined ones
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Predefined errors
var (
	ErrNotFound = &AppError{
		Code:    "NOT_FOUND",
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrUnauthorized = &AppError{
		Code:    "UNAUTHORIZED",
		Message: "Unauthorized access",
		Status:  http.StatusUnauthorized,
	}

	ErrBadRequest = &AppError{
		Code:    "BAD_REQUEST",
		Message: "Invalid request",
		Status:  http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrConflict = &AppError{
		Code:    "CONFLICT",
		Message: "Resource conflict",
		Status:  http.StatusConflict,
	}

	ErrValidation = &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "Validation failed",
		Status:  http.StatusBadRequest,
	}
)

// Pipeline errors. None of these leave the queue consumer.
var (
	// ErrMalformedMessage marks a queue payload that is not JSON or lacks jobId/url
	ErrMalformedMessage = &AppError{
		Code:    "MALFORMED_MESSAGE",
		Message: "Malformed queue message",
		Status:  http.StatusBadRequest,
	}

	// ErrExternalService marks a scrape, embed or upsert failure
	ErrExternalService = &AppError{
		Code:    "EXTERNAL_SERVICE_FAILURE",
		Message: "External service failure",
		Status:  http.StatusBadGateway,
	}

	ErrStatusWrite = &AppError{
		Code:    "STATUS_WRITE_FAILURE",
		Message: "Status write failed",
		Status:  http.StatusInternalServerError,
	}

	ErrQueueConnection = &AppError{
		Code:    "QUEUE_CONNECTION_FAILURE",
		Message: "Queue connection failed",
		Status:  http.StatusServiceUnavailable,
	}
)

func NewError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func WrapError(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap attaches err as the cause of a copy of base
func Wrap(base *AppError, err error) *AppError {
	return WrapError(err, base.Code, base.Message, base.Status)
}

// ErrorResponse is a common error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
