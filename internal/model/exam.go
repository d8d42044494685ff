package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam authored by a teacher. Duration and pass score are
// the contract every attempt against the exam must honor. An exam becomes
// immutable once any session referencing it has started.
type Exam struct {
	ID                uuid.UUID       `json:"id"`
	TeacherID         int             `json:"teacher_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	DurationMinutes   int             `json:"duration_minutes"`
	PassScore         *float64        `json:"pass_score,omitempty"`
	IsRandom          bool            `json:"is_random"`
	AntiCheatSettings json.RawMessage `json:"anti_cheat_settings,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title             string          `json:"title" binding:"required,min=3,max=255"`
	Description       string          `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes   int             `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassScore         *float64        `json:"pass_score" binding:"omitempty,min=0,max=999.99"`
	IsRandom          bool            `json:"is_random"`
	AntiCheatSettings json.RawMessage `json:"anti_cheat_settings" binding:"omitempty"`
}

// ExamPaper is the student-facing view of an exam: questions in the order the
// attempt should present them, options without correctness flags.
type ExamPaper struct {
	ExamID          uuid.UUID          `json:"exam_id"`
	AttemptID       uuid.UUID          `json:"attempt_id"`
	Title           string             `json:"title"`
	DurationMinutes int                `json:"duration_minutes"`
	Questions       []QuestionForPaper `json:"questions"`
}
