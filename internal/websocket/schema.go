package websocket

import (
	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/examforge/examforge-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionFlag      Action = "flag"
	ActionNavigate  Action = "navigate"
	ActionFocusLost Action = "focus_lost"
	ActionSubmit    Action = "submit"
	ActionState     Action = "state"
	ActionPing      Action = "ping"
)

// Request is any client message. Fields not used by an action are ignored.
type Request struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Option     string `json:"option,omitempty"`
	Direction  string `json:"direction,omitempty"` // next, previous or goto
	Index      int    `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError        Event = "error"
	EventState        Event = "state"
	EventFlag         Event = "flag"
	EventNotification Event = "notification"
	EventSubmitted    Event = "submitted"
	EventPong         Event = "pong"
)

// StateResponse carries the full student view after a change.
type StateResponse struct {
	Event Event              `json:"event"`
	State model.SessionState `json:"state"`
}

// FlagResponse acknowledges a flag toggle.
type FlagResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Flagged    bool   `json:"flagged"`
}

// NotificationResponse forwards a session notification.
type NotificationResponse struct {
	Event        Event             `json:"event"`
	Notification exam.Notification `json:"notification"`
}

// SubmittedResponse carries the recorded result.
type SubmittedResponse struct {
	Event  Event             `json:"event"`
	Result *model.ExamResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
