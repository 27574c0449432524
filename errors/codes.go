package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Authentication errors
const (
	// ErrCodeUnauthorized indicates the request carries no usable identity.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeMissingCredential indicates no bearer token was presented.
	ErrCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"
	// ErrCodeTokenExpired indicates the token is past its expiry.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	// ErrCodeInvalidToken indicates the token failed verification.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	// ErrCodeInvalidClaims indicates the verified claims do not fit the expected shape.
	ErrCodeInvalidClaims ErrorCode = "INVALID_CLAIMS"
)

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates a dependency is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeExternalService indicates the identity provider returned an error.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Configuration and internal errors
const (
	// ErrCodeInvalidInput indicates invalid configuration or input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
