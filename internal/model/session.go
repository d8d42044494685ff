package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamSession is a scheduled activation window of an exam, entered via access
// code. At most one session may carry a given code — ever, not merely among
// active sessions — so a retired code can still be resolved for review.
// A session is enterable only while active and, when a window is set, while
// the current time falls inside [StartTime, EndTime].
type ExamSession struct {
	ID         uuid.UUID  `json:"id"`
	ExamID     uuid.UUID  `json:"exam_id"`
	AccessCode string     `json:"access_code"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	IsActive   bool       `json:"is_active"`
}

// Enterable reports whether the session can currently be entered.
func (s *ExamSession) Enterable(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.WithinWindow(now)
}

// WithinWindow reports whether now falls inside the session's scheduled
// window. Sessions with unset bounds are open-ended on that side.
func (s *ExamSession) WithinWindow(now time.Time) bool {
	if s.StartTime != nil && now.Before(*s.StartTime) {
		return false
	}
	if s.EndTime != nil && now.After(*s.EndTime) {
		return false
	}
	return true
}

// CreateSessionRequest is the payload for scheduling a session. The access
// code is generated server-side and returned in the response.
type CreateSessionRequest struct {
	ExamID    uuid.UUID  `json:"exam_id" binding:"required"`
	StartTime *time.Time `json:"start_time" binding:"omitempty"`
	EndTime   *time.Time `json:"end_time" binding:"omitempty,gtfield=StartTime"`
}

// EnterSessionRequest is the payload for a student entering a session.
type EnterSessionRequest struct {
	AccessCode string `json:"access_code" binding:"required,alphanum"`
}
