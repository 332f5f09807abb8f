package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidQuery      = 1003
	ErrCodeInvalidID         = 1004
	ErrCodeMissingRequired   = 1005
	ErrCodeInvalidTimeFilter = 1006
	ErrCodeInvalidUpload     = 1007
	ErrCodeConflictingQuery  = 1008

	// Domain state (2xxx)
	ErrCodeCaptureNotFound = 2001
	ErrCodeNoSpeechText    = 2002

	// Limits (3xxx)
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal      = 4001
	ErrCodeStoreFailure  = 4002
	ErrCodeExportFailed  = 4003
	ErrCodeOCRFailure    = 4004
	ErrCodeSpeechFailure = 4005
	ErrCodeCacheFailure  = 4006
	ErrCodeNotConfigured = 4007
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeCaptureNotFound
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 502:
		return ErrCodeOCRFailure
	default:
		return 0
	}
}
