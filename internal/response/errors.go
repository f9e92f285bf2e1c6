package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrAdminKey      ErrCode = "ADMIN_KEY_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrFileRequired   ErrCode = "FILE_REQUIRED"
	ErrImportHeader   ErrCode = "IMPORT_HEADER_INVALID"
	ErrImportEmpty    ErrCode = "IMPORT_EMPTY"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrClassNotFound   ErrCode = "CLASS_NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrResultNotFound  ErrCode = "RESULT_NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrExamExpired      ErrCode = "EXAM_EXPIRED"
	ErrIdentityRequired ErrCode = "IDENTITY_REQUIRED"
	ErrInvalidAccessKey ErrCode = "INVALID_ACCESS_KEY"
	ErrAlreadyStarted   ErrCode = "SESSION_ALREADY_STARTED"
	ErrNotInProgress    ErrCode = "SESSION_NOT_IN_PROGRESS"
	ErrSessionSubmitted ErrCode = "SESSION_SUBMITTED"
	ErrTimeUp           ErrCode = "TIME_UP"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption    ErrCode = "UNKNOWN_OPTION"
	ErrNoSnapshot       ErrCode = "NO_SNAPSHOT"
	ErrInvalidQuestion  ErrCode = "INVALID_QUESTION"

	// ─── Data access ───────────────────────────────────────────────────
	ErrRosterWrite ErrCode = "ROSTER_WRITE_FAILED"
	ErrResultWrite ErrCode = "RESULT_WRITE_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid or has expired."
	case ErrAdminKey:
		return "A valid admin key is required."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrFileRequired:
		return "A file upload is required."
	case ErrImportHeader:
		return "The CSV file needs question, options and correctAnswer columns."
	case ErrImportEmpty:
		return "The CSV file contains no valid questions."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrClassNotFound:
		return "Class not found."
	case ErrSessionNotFound:
		return "Exam session not found. Please reopen the exam."
	case ErrResultNotFound:
		return "Result not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNoQuestions:
		return "No questions available for this class."
	case ErrExamExpired:
		return "This exam has expired."
	case ErrIdentityRequired:
		return "Please enter your name and email."
	case ErrInvalidAccessKey:
		return "Invalid access key."
	case ErrAlreadyStarted:
		return "This exam session has already started."
	case ErrNotInProgress:
		return "This exam session is not in progress."
	case ErrSessionSubmitted:
		return "This exam has already been submitted."
	case ErrTimeUp:
		return "Time is up. Please submit your exam."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrUnknownOption:
		return "The option is not offered for this question."
	case ErrNoSnapshot:
		return "There is no saved progress to resume."
	case ErrInvalidQuestion:
		return "The correct answer must be one of the options, and options must be distinct."

	// ─── Data access ───────────────────────────────────────────────────
	case ErrRosterWrite:
		return "Could not register you for the exam. Please try again."
	case ErrResultWrite:
		return "Could not record your result. Your answers are kept, please submit again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
