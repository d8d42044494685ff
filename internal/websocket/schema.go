package websocket

import (
	"encoding/json"

	"github.com/thiexam/thiexam-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionFlag    Action = "flag"
	ActionProctor Action = "proctor"
	ActionSubmit  Action = "submit"
	ActionPing    Action = "ping"
)

// RequestPayload is the single client message shape. Which fields matter
// depends on the action; unused fields are ignored.
type RequestPayload struct {
	Action           Action          `json:"action"`
	QuestionID       string          `json:"question_id,omitempty"`
	SelectedOptionID *string         `json:"selected_option_id,omitempty"`
	EssayAnswer      *string         `json:"essay_answer,omitempty"`
	Flagged          bool            `json:"flagged,omitempty"`
	EventType        string          `json:"event_type,omitempty"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventFlagged   Event = "flagged"
	EventRecorded  Event = "recorded"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// SavedResponse acknowledges an answer write.
type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// FlaggedResponse acknowledges a flag toggle.
type FlaggedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Flagged    bool   `json:"flagged"`
}

// RecordedResponse acknowledges a proctoring event.
type RecordedResponse struct {
	Event Event `json:"event"`
}

// SubmittedResponse carries the attempt's final state after a submit.
type SubmittedResponse struct {
	Event      Event               `json:"event"`
	Status     model.AttemptStatus `json:"status"`
	TotalScore *float64            `json:"total_score,omitempty"`
	Passed     *bool               `json:"passed,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
