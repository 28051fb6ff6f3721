// Package errors categorizes dashboard errors and maps them to HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/portfolio-dashboard/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryBackend represents errors returned by the backend collaborator
	CategoryBackend ErrorCategory = "backend"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents authorization errors
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// Error codes
const (
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeInvalidHolding     = "INVALID_HOLDING"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeCacheError         = "CACHE_ERROR"
	CodeBackendError       = "BACKEND_ERROR"
	CodeBackendTimeout     = "BACKEND_TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Validation errors (4xx)

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewInvalidHoldingError creates an error for a holding that breaks its invariants
func NewInvalidHoldingError(symbol string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       CodeInvalidHolding,
		Message:    fmt.Sprintf("invalid holding: %s", symbol),
		Cause:      cause,
		Details: map[string]interface{}{
			"symbol": symbol,
		},
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// System errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabaseError,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeCacheError,
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewBackendError creates an error for a failed backend round trip.
// statusCode is the backend's own status, 0 for transport failures.
func NewBackendError(statusCode int, message string, cause error) *CategorizedError {
	status := http.StatusBadGateway
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusUnauthorized {
		status = statusCode
	}
	return &CategorizedError{
		Category:   CategoryBackend,
		StatusCode: status,
		Code:       CodeBackendError,
		Message:    message,
		Cause:      cause,
		Details: map[string]interface{}{
			"backendStatus": statusCode,
		},
	}
}

// NewBackendTimeoutError creates a backend timeout error
func NewBackendTimeoutError(operation string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryBackend,
		StatusCode: http.StatusGatewayTimeout,
		Code:       CodeBackendTimeout,
		Message:    fmt.Sprintf("backend timeout: %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeServiceUnavailable,
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	return NewInternalError("unexpected error", err)
}

// categorizeServiceError categorizes a ServiceError
func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	category, status := CategorySystem, http.StatusInternalServerError
	switch err.Code {
	case CodeInvalidParameter:
		category, status = CategoryValidation, http.StatusBadRequest
	case CodeInvalidHolding:
		category, status = CategoryValidation, http.StatusUnprocessableEntity
	case CodeNotFound:
		category, status = CategoryNotFound, http.StatusNotFound
	case CodeUnauthorized:
		category, status = CategoryAuthorization, http.StatusUnauthorized
	case CodeRateLimitExceeded:
		category, status = CategoryRateLimit, http.StatusTooManyRequests
	}
	return &CategorizedError{
		Category:   category,
		StatusCode: status,
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryDatabase, CategoryCache:
		return true
	case CategoryBackend:
		// 4xx answers from the backend will not change on retry
		status, _ := catErr.Details["backendStatus"].(int)
		return status == 0 || status >= 500
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.StatusCode >= 500
}
