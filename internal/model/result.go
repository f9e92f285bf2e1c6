package model

import "time"

// ExamResult is the write-once outcome of a submitted session.
type ExamResult struct {
	ID                  string          `json:"id"`
	ClassID             string          `json:"class_id"`
	ClassName           string          `json:"class_name"`
	SessionID           string          `json:"session_id"`
	Student             StudentIdentity `json:"student"`
	Score               int             `json:"score"`
	TotalQuestions      int             `json:"total_questions"`
	Percentage          int             `json:"percentage"`
	Passed              bool            `json:"passed"`
	Grade               string          `json:"grade"`
	DurationMinutes     int             `json:"duration_minutes"`
	DurationUsedSeconds int             `json:"duration_used_seconds"`
	IntegrityWarnings   int             `json:"integrity_warnings"`
	SubmitReason        SubmitReason    `json:"submit_reason"`
	SubmittedAt         time.Time       `json:"submitted_at"`
}
