package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentAnswer is the per-attempt, per-question ledger entry. Exactly one of
// SelectedOptionID / EssayAnswer is populated, matching the question type.
// A later write replaces the prior answer; no history is retained.
type StudentAnswer struct {
	ID               int64      `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id,omitempty"`
	EssayAnswer      *string    `json:"essay_answer,omitempty"`
	IsFlagged        bool       `json:"is_flagged"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RecordAnswerRequest is the payload for writing an answer. Option and essay
// content are mutually exclusive; the service validates the pairing against
// the question type.
type RecordAnswerRequest struct {
	SelectedOptionID *uuid.UUID `json:"selected_option_id" binding:"omitempty"`
	EssayAnswer      *string    `json:"essay_answer" binding:"omitempty,max=20000"`
}

// FlagAnswerRequest toggles the review flag independently of answer content.
type FlagAnswerRequest struct {
	Flagged bool `json:"flagged"`
}
