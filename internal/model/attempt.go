package model

import "time"

// AttemptStatus enumerates the lifecycle of an exam attempt.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusAbandoned  AttemptStatus = "abandoned"
)

// Attempt tracks one student's pass through an exam, keyed by session id.
type Attempt struct {
	ID           string        `json:"id"`
	ClassID      string        `json:"class_id"`
	StudentEmail string        `json:"student_email"`
	Status       AttemptStatus `json:"status"`
	TabSwitches  int           `json:"tab_switches"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
}

// AttemptEventKind enumerates the session events mirrored into attempts.
type AttemptEventKind string

const (
	AttemptEventStarted   AttemptEventKind = "started"
	AttemptEventFocusLost AttemptEventKind = "focus_lost"
	AttemptEventCompleted AttemptEventKind = "completed"
	AttemptEventAbandoned AttemptEventKind = "abandoned"
)

// AttemptEvent is queued by a session and applied to the attempt log.
type AttemptEvent struct {
	Kind         AttemptEventKind `json:"kind"`
	SessionID    string           `json:"session_id"`
	ClassID      string           `json:"class_id"`
	StudentEmail string           `json:"student_email,omitempty"`
	TabSwitches  int              `json:"tab_switches"`
	At           time.Time        `json:"at"`
}
