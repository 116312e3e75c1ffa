package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrStudentAccessOnly  ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── OTP ───────────────────────────────────────────────────────────
	ErrOTPNotFound     ErrCode = "OTP_NOT_FOUND"
	ErrOTPExpired      ErrCode = "OTP_EXPIRED"
	ErrOTPMismatch     ErrCode = "OTP_INVALID"
	ErrTooManyAttempts ErrCode = "OTP_TOO_MANY_ATTEMPTS"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNoActiveAttempt  ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptCompleted ErrCode = "ATTEMPT_COMPLETED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid name or phone number."
	case ErrSessionExpired:
		return "Session expired. Please log in again."
	case ErrSessionInvalidated:
		return "You have logged in on another device."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrStudentAccessOnly:
		return "This resource is only available to students."

	// ─── OTP ───────────────────────────────────────────────────────────
	case ErrOTPNotFound:
		return "OTP not found. Please request a new one."
	case ErrOTPExpired:
		return "OTP expired. Please request a new one."
	case ErrOTPMismatch:
		return "Invalid OTP."
	case ErrTooManyAttempts:
		return "Too many invalid attempts. Please request a new OTP."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed."
	case ErrInvalidPayload:
		return "Request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNoActiveAttempt:
		return "No active exam found."
	case ErrAttemptCompleted:
		return "Exam already submitted."
	case ErrNoQuestions:
		return "No questions are available for the exam."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."

	default:
		return "An error occurred."
	}
}
