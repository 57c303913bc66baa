package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Request errors — user-correctable, surfaced verbatim.
const (
	// ErrCodeInvalidRequest indicates the request is malformed.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeMissingParameter indicates a required parameter is missing.
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
)

// Authentication errors — surfaced with a retry hint.
const (
	// ErrCodeInvalidCredentials indicates the supplied credentials do not match.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrCodeUserNotFound indicates no account matches the login identifier.
	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	// ErrCodePasswordIncorrect indicates the password failed verification.
	ErrCodePasswordIncorrect ErrorCode = "PASSWORD_INCORRECT"
	// ErrCodeAccountDisabled indicates the account exists but may not log in.
	ErrCodeAccountDisabled ErrorCode = "ACCOUNT_DISABLED"
)

// Protocol/state errors — surfaced with a "start over" hint, retryable.
const (
	// ErrCodeInvalidState indicates a missing, consumed, or forged handshake state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeStateExpired indicates the handshake state outlived its TTL.
	ErrCodeStateExpired ErrorCode = "STATE_EXPIRED"
	// ErrCodeOAuthCallbackFailed indicates the upstream provider returned an error.
	ErrCodeOAuthCallbackFailed ErrorCode = "OAUTH_CALLBACK_FAILED"
	// ErrCodeTokenExchangeFailed indicates the authorization code exchange failed.
	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"
	// ErrCodeUserinfoFetchFailed indicates the userinfo endpoint call failed.
	ErrCodeUserinfoFetchFailed ErrorCode = "USERINFO_FETCH_FAILED"
)

// Configuration errors — deployment mistakes, not user mistakes.
const (
	// ErrCodeProviderNotFound indicates no plugin is registered under the method name.
	ErrCodeProviderNotFound ErrorCode = "PROVIDER_NOT_FOUND"
	// ErrCodeProviderDisabled indicates the plugin refused to handle the request.
	ErrCodeProviderDisabled ErrorCode = "PROVIDER_DISABLED"
	// ErrCodeInvalidConfiguration indicates a component was misconfigured.
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	// ErrCodePermissionDenied indicates a plugin lacks a required capability.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// Infrastructure errors — logged with full cause chain, surfaced generically.
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a storage backend error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeNetworkError indicates a networked backend could not be reached.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeInvalidState:        true,
	ErrCodeStateExpired:        true,
	ErrCodeOAuthCallbackFailed: true,
	ErrCodeTokenExchangeFailed: true,
	ErrCodeUserinfoFetchFailed: true,
	ErrCodeDatabaseError:       true,
	ErrCodeNetworkError:        true,
	ErrCodeInternal:            false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
