package apperrors

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeTransientIO covers network and download failures. Surfaced, never retried by the orchestrator.
	ErrCodeTransientIO ErrorCode = "TRANSIENT_IO"
	// ErrCodeConflict is a uniqueness collision, e.g. an audio URL already ingested for a correspondent.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeNotFound means the data needed to continue is absent.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeDatabaseError is any other store failure.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransientIO:   true,
	ErrCodeDatabaseError: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
