package exam

import "github.com/examforge/examforge-backend/internal/model"

// NotificationKind enumerates what a session tells its student.
type NotificationKind string

const (
	NotifyFullscreenRequested NotificationKind = "fullscreen_requested"
	NotifyTimeWarning         NotificationKind = "time_warning"
	NotifyIntegrityWarning    NotificationKind = "integrity_warning"
	NotifySubmitted           NotificationKind = "submitted"
	NotifySubmitFailed        NotificationKind = "submit_failed"
)

// Notification is a non-blocking message to the student.
type Notification struct {
	Kind                 NotificationKind   `json:"kind"`
	Message              string             `json:"message"`
	TimeRemainingSeconds int                `json:"time_remaining_seconds,omitempty"`
	IntegrityWarnings    int                `json:"integrity_warnings,omitempty"`
	RemainingTolerance   int                `json:"remaining_tolerance,omitempty"`
	ResultID             string             `json:"result_id,omitempty"`
	Reason               model.SubmitReason `json:"reason,omitempty"`
}
