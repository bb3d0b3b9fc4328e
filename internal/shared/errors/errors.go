package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRehostFailed     = errors.New("rehosting failed")
	ErrSubmissionFailed = errors.New("submission failed")
	ErrTaskFailed       = errors.New("task failed")
	ErrTaskTimeout      = errors.New("task timed out")
	ErrDownloadFailed   = errors.New("download failed")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

// BadRequest creates a bad request error.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrBadRequest,
	}
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrBadRequest,
	}
}

// Unauthorized creates an unauthorized error. Used when the generation
// provider rejects the supplied credential.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "provider rejected the API key"
	}
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// RehostFailed creates an asset rehosting error: every public host was
// tried and none produced a usable URL.
func RehostFailed(message string, err error) *AppError {
	if message == "" {
		message = "no usable images: all public hosts failed"
	}
	return &AppError{
		Code:       "REHOST_FAILED",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        errors.Join(ErrRehostFailed, err),
	}
}

// SubmissionFailed creates a task submission error: every provider
// endpoint rejected the create-task request.
func SubmissionFailed(message string, err error) *AppError {
	return &AppError{
		Code:       "SUBMISSION_FAILED",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        errors.Join(ErrSubmissionFailed, err),
	}
}

// TaskFailed creates a remote task failure error carrying the provider's
// diagnostic detail.
func TaskFailed(detail string) *AppError {
	message := "task failed"
	if detail != "" {
		message = fmt.Sprintf("task failed: %s", detail)
	}
	return &AppError{
		Code:       "TASK_FAILED",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        ErrTaskFailed,
	}
}

// TaskTimeout creates a local polling deadline error.
func TaskTimeout(err error) *AppError {
	return &AppError{
		Code:       "TASK_TIMEOUT",
		Message:    "task did not reach a terminal state before the deadline",
		StatusCode: http.StatusGatewayTimeout,
		Err:        errors.Join(ErrTaskTimeout, err),
	}
}

// DownloadFailed creates an artifact download error.
func DownloadFailed(err error) *AppError {
	return &AppError{
		Code:       "DOWNLOAD_FAILED",
		Message:    "failed to download generated video",
		StatusCode: http.StatusBadGateway,
		Err:        errors.Join(ErrDownloadFailed, err),
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTaskTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrRehostFailed),
		errors.Is(err, ErrSubmissionFailed),
		errors.Is(err, ErrTaskFailed),
		errors.Is(err, ErrDownloadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
