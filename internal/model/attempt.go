package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the states of a student attempt. The set is
// closed: every transition goes through CanTransition, and every exit from
// IN_PROGRESS is terminal.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusGraded     AttemptStatus = "GRADED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
	AttemptStatusAbandoned  AttemptStatus = "ABANDONED"
)

// attemptTransitions is the full transition table. SUBMITTED→GRADED is the
// only second hop; nothing ever returns to IN_PROGRESS.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptStatusInProgress: {AttemptStatusSubmitted, AttemptStatusExpired, AttemptStatusAbandoned},
	AttemptStatusSubmitted:  {AttemptStatusGraded},
	AttemptStatusGraded:     {},
	AttemptStatusExpired:    {},
	AttemptStatusAbandoned:  {},
}

// CanTransition reports whether from→to is a legal attempt transition.
func CanTransition(from, to AttemptStatus) bool {
	for _, next := range attemptTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further student activity.
// SUBMITTED is terminal for students even though grading still advances it.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusInProgress
}

// StudentAttempt is one student's single timed pass through an exam session.
// SubmittedAt and TotalScore are written exactly once, at the transition out
// of IN_PROGRESS, and are immutable thereafter.
type StudentAttempt struct {
	ID          uuid.UUID     `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	StudentID   int           `json:"student_id"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	TotalScore  *float64      `json:"total_score,omitempty"`
	Passed      *bool         `json:"passed,omitempty"`
	Status      AttemptStatus `json:"status"`
}

// Deadline returns the instant the attempt's time limit elapses.
func (a *StudentAttempt) Deadline(durationMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// TimeRemaining derives the remaining duration at now, floored at zero.
// Never persisted — always recomputed so concurrent readers agree after a
// clock read.
func (a *StudentAttempt) TimeRemaining(durationMinutes int, now time.Time) time.Duration {
	remaining := a.Deadline(durationMinutes).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AttemptState is the reload view of a running attempt: saved answers plus
// the derived clock.
type AttemptState struct {
	AttemptID            uuid.UUID       `json:"attempt_id"`
	Status               AttemptStatus   `json:"status"`
	Answers              []StudentAnswer `json:"answers"`
	RemainingTimeSeconds float64         `json:"remaining_time_seconds"`
}
