package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrRateLimited  = errors.New("rate limited")
	ErrStorage      = errors.New("storage unavailable")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`

	// RetryAfterSeconds is set only for retryable errors (rate limiting)
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
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

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// UnauthorizedKind creates an unauthorized error with a specific failure code
// (MISSING_CREDENTIAL, CREDENTIAL_REVOKED, CREDENTIAL_EXPIRED, CREDENTIAL_MALFORMED)
// so the transport layer can produce distinct client-facing messages.
func UnauthorizedKind(code, message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       code,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		HTTPStatus: http.StatusForbidden,
	}
}

// PageForbidden signals that the resolved role may not open the requested page.
func PageForbidden(role, page string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("role %s is not allowed to access page %s", role, page),
		Code:       "PAGE_FORBIDDEN",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]string{"role": role, "page": page},
	}
}

// ActionForbidden signals that the resolved role may not perform the action.
func ActionForbidden(role, action string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("role %s is not allowed to perform action %s", role, action),
		Code:       "ACTION_FORBIDDEN",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]string{"role": role, "action": action},
	}
}

// UnknownRole signals that the credential carried a role with no definition.
// Treated as permission denied, never as a server error.
func UnknownRole(role string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("role %q is not recognized", role),
		Code:       "UNKNOWN_ROLE",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]string{"role": role},
	}
}

// CrossCoordination signals an edit attempt on a record owned by another coordination.
func CrossCoordination(role, recordCoordination string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("role %s may not edit records of coordination %s", role, recordCoordination),
		Code:       "CROSS_COORDINATION_DENIED",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]string{"role": role, "record_coordination": recordCoordination},
	}
}

// NoPermittedFields signals that column filtering removed every field of a
// non-empty update payload.
func NoPermittedFields(role string, rejected []string) *AppError {
	details := map[string]string{"role": role}
	if len(rejected) > 0 {
		details["rejected_count"] = fmt.Sprintf("%d", len(rejected))
	}
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("role %s may not modify any of the submitted fields", role),
		Code:       "NO_PERMITTED_FIELDS",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a retryable too-many-requests error carrying the
// applicable quota and the wait hint.
func RateLimited(retryAfterSeconds, maxRequests int, routeClass string) *AppError {
	return &AppError{
		Err:               ErrRateLimited,
		Message:           fmt.Sprintf("rate limit of %d requests exceeded for %s routes", maxRequests, routeClass),
		Code:              "RATE_LIMITED",
		HTTPStatus:        http.StatusTooManyRequests,
		RetryAfterSeconds: retryAfterSeconds,
		Details: map[string]string{
			"route_class": routeClass,
			"quota":       fmt.Sprintf("%d", maxRequests),
		},
	}
}

// StorageUnavailable wraps an infrastructure fault so callers never mistake it
// for an authorization denial.
func StorageUnavailable(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrStorage, err),
		Message:    "storage unavailable",
		Code:       "STORAGE_UNAVAILABLE",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// AsAppError extracts an *AppError from err, falling back to Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
