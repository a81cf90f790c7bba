package common

import (
	"net/http"
)

// ErrorResponse is the API error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError carries an error code and HTTP status alongside the cause.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError creates a new custom error.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Predefined error codes.
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"     // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"        // 401
	ErrCodeForbidden        = "FORBIDDEN"           // 403
	ErrCodeNotFound         = "NOT_FOUND"           // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"     // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"   // 429
	ErrCodeInternalError    = "INTERNAL_ERROR"      // 500
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE" // 503
	ErrCodeUnsafeRequest    = "UNSAFE_REQUEST"      // 422
	ErrCodeGenerationFailed = "GENERATION_FAILED"   // 502
)

// Predefined errors.
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrUnavailable     = NewError(ErrCodeUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable, nil)
)
