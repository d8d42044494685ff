package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProctoringLog is one anti-cheat event tied to an attempt. Rows are only
// ever inserted — the codebase exposes no update or delete path for them.
// Event types are open-ended strings (tab-blur, fullscreen-exit, copy-paste);
// interpretation of severity belongs to the review surface.
type ProctoringLog struct {
	ID        int64           `json:"id"`
	AttemptID uuid.UUID       `json:"attempt_id"`
	EventType string          `json:"event_type"`
	LogTime   time.Time       `json:"log_time"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// ProctorEventRequest is the payload for reporting a proctoring event.
type ProctorEventRequest struct {
	EventType string          `json:"event_type" binding:"required,min=1,max=100"`
	Details   json.RawMessage `json:"details" binding:"omitempty"`
}
