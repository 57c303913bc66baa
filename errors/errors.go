// Package errors provides unified error handling for the identity kit.
// It implements structured error types with error codes, HTTP status mapping,
// and retryable detection following RFC 7807.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Request errors ---

// InvalidRequest creates a new AppError for a malformed request.
func InvalidRequest(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRequest, Message: reason,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingParameter creates a new AppError for a missing required parameter.
func MissingParameter(name string) *AppError {
	return &AppError{
		Code: ErrCodeMissingParameter, Message: fmt.Sprintf("Missing required parameter: %s", name),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"parameter": name},
	}
}

// --- Authentication errors ---

// InvalidCredentials creates a new AppError for credentials that do not match.
func InvalidCredentials() *AppError {
	return &AppError{
		Code: ErrCodeInvalidCredentials, Message: "Invalid username or password. Please try again.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// UserNotFound creates a new AppError for an unknown login identifier.
func UserNotFound(identifier string) *AppError {
	return &AppError{
		Code: ErrCodeUserNotFound, Message: "No account matches that identifier. Please try again.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
		Details: map[string]any{"identifier": identifier},
	}
}

// PasswordIncorrect creates a new AppError for a failed password check.
func PasswordIncorrect() *AppError {
	return &AppError{
		Code: ErrCodePasswordIncorrect, Message: "Incorrect password. Please try again.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// AccountDisabled creates a new AppError for a disabled account.
func AccountDisabled(accountID string) *AppError {
	return &AppError{
		Code: ErrCodeAccountDisabled, Message: "This account is disabled. Contact an administrator.",
		HTTPStatus: http.StatusForbidden, Retryable: false,
		Details: map[string]any{"account_id": accountID},
	}
}

// --- Protocol/state errors ---

// InvalidState creates a new AppError for a missing, consumed, or forged
// handshake state token. All three cases produce the same error so an
// attacker cannot distinguish them.
func InvalidState() *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: "Invalid or expired login state. Please start over.",
		HTTPStatus: http.StatusBadRequest, Retryable: true,
	}
}

// StateExpired creates a new AppError for a handshake state past its TTL.
func StateExpired() *AppError {
	return &AppError{
		Code: ErrCodeStateExpired, Message: "Your login attempt expired. Please start over.",
		HTTPStatus: http.StatusBadRequest, Retryable: true,
	}
}

// OAuthCallbackFailed creates a new AppError for an upstream provider error.
func OAuthCallbackFailed(provider string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeOAuthCallbackFailed, Message: fmt.Sprintf("Sign-in with %s failed. Please start over.", provider),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"provider": provider}, Cause: cause,
	}
}

// TokenExchangeFailed creates a new AppError for a failed code exchange.
func TokenExchangeFailed(provider string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTokenExchangeFailed, Message: fmt.Sprintf("Could not complete sign-in with %s. Please start over.", provider),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"provider": provider}, Cause: cause,
	}
}

// UserinfoFetchFailed creates a new AppError for a failed userinfo call.
func UserinfoFetchFailed(provider string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUserinfoFetchFailed, Message: fmt.Sprintf("Could not load your profile from %s. Please start over.", provider),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"provider": provider}, Cause: cause,
	}
}

// --- Configuration errors ---

// ProviderNotFound creates a new AppError for an unregistered method name.
func ProviderNotFound(method string) *AppError {
	return &AppError{
		Code: ErrCodeProviderNotFound, Message: fmt.Sprintf("Authentication method %q is not configured.", method),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"method": method},
	}
}

// ProviderDisabled creates a new AppError for a plugin that refused the request.
func ProviderDisabled(method string) *AppError {
	return &AppError{
		Code: ErrCodeProviderDisabled, Message: fmt.Sprintf("Authentication method %q is currently disabled.", method),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"method": method},
	}
}

// InvalidConfiguration creates a new AppError for a misconfigured component.
func InvalidConfiguration(component, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfiguration, Message: fmt.Sprintf("Invalid %s configuration: %s", component, reason),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"component": component},
	}
}

// PermissionDenied creates a new AppError for a plugin lacking a capability.
func PermissionDenied(plugin, capability string) *AppError {
	return &AppError{
		Code: ErrCodePermissionDenied, Message: fmt.Sprintf("Plugin %q is not granted capability %q.", plugin, capability),
		HTTPStatus: http.StatusForbidden, Retryable: false,
		Details: map[string]any{"plugin": plugin, "capability": capability},
	}
}

// --- Infrastructure errors ---

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again later.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a storage backend error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A storage error occurred. Please try again later.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// NetworkError creates a new AppError for an unreachable networked backend.
func NetworkError(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeNetworkError, Message: "A backend service is unreachable. Please try again later.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"backend": backend}, Cause: cause,
	}
}

// --- Resource errors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}
