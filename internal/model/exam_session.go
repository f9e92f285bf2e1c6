package model

import "time"

// Phase enumerates exam session states.
type Phase string

const (
	PhaseVerifying  Phase = "verifying"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// SubmitReason records which trigger finalized a session.
type SubmitReason string

const (
	SubmitReasonManual    SubmitReason = "manual"
	SubmitReasonTimer     SubmitReason = "timer_expired"
	SubmitReasonIntegrity SubmitReason = "integrity_violation"
)

// Snapshot is the periodically persisted progress of an in-progress session.
// Answers, CurrentIndex and TimeRemainingSeconds are the resumable core; the
// remaining fields let a resumed session keep its order, flags, warning
// count and student identity.
type Snapshot struct {
	Answers              map[string]string `json:"answers"`
	CurrentIndex         int               `json:"currentIndex"`
	TimeRemainingSeconds int               `json:"timeRemainingSeconds"`

	QuestionOrder     []string         `json:"questionOrder,omitempty"`
	Flagged           []string         `json:"flagged,omitempty"`
	IntegrityWarnings int              `json:"integrityWarnings,omitempty"`
	Student           *StudentIdentity `json:"student,omitempty"`
	SavedAt           time.Time        `json:"savedAt"`
}

// NavigatorEntry is one cell of the question navigator grid.
type NavigatorEntry struct {
	Index      int    `json:"index"`
	QuestionID string `json:"question_id"`
	Answered   bool   `json:"answered"`
	Flagged    bool   `json:"flagged"`
}

// SessionState is the student-facing view of a session.
type SessionState struct {
	SessionID            string              `json:"session_id"`
	ClassID              string              `json:"class_id"`
	ClassName            string              `json:"class_name"`
	Phase                Phase               `json:"phase"`
	CurrentIndex         int                 `json:"current_index"`
	TotalQuestions       int                 `json:"total_questions"`
	CurrentQuestion      *QuestionForStudent `json:"current_question,omitempty"`
	SelectedAnswer       string              `json:"selected_answer,omitempty"`
	Navigator            []NavigatorEntry    `json:"navigator,omitempty"`
	AnsweredCount        int                 `json:"answered_count"`
	TimeRemainingSeconds int                 `json:"time_remaining_seconds"`
	IntegrityWarnings    int                 `json:"integrity_warnings"`
	MaxIntegrityWarnings int                 `json:"max_integrity_warnings"`
	ResumeAvailable      bool                `json:"resume_available"`
	ResultID             string              `json:"result_id,omitempty"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Action string `json:"action" binding:"required,oneof=next previous goto"`
	Index  int    `json:"index"`
}

// AnswerRequest selects an option for a question.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Option     string `json:"option" binding:"required"`
}

// IntegrityEventRequest reports a focus or visibility loss.
type IntegrityEventRequest struct {
	Kind string `json:"kind" binding:"required,oneof=visibility_hidden blur"`
}
