package model

import "github.com/google/uuid"

// QuestionType enumerates supported question types. Only multiple-choice
// questions are scored automatically; essays await manual grading.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Question is a member of an exam's ordered question set.
type Question struct {
	ID         uuid.UUID        `json:"id"`
	ExamID     uuid.UUID        `json:"exam_id"`
	Content    string           `json:"content"`
	Type       QuestionType     `json:"type"`
	Points     float64          `json:"points"`
	OrderIndex int              `json:"order_index"`
	Options    []QuestionOption `json:"options,omitempty"`
}

// QuestionOption is one answer choice of a multiple-choice question.
// IsCorrect is never serialized to students.
type QuestionOption struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Content    string    `json:"content"`
	IsCorrect  bool      `json:"-"`
}

// QuestionForPaper is a question as presented to a student: no correctness
// flags, options in stored order.
type QuestionForPaper struct {
	ID      uuid.UUID        `json:"id"`
	Content string           `json:"content"`
	Type    QuestionType     `json:"type"`
	Points  float64          `json:"points"`
	Options []OptionForPaper `json:"options,omitempty"`
}

// OptionForPaper is an option stripped of its correctness flag.
type OptionForPaper struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// AddQuestionRequest is one question in a ReplaceQuestionsRequest.
type AddQuestionRequest struct {
	Content    string             `json:"content" binding:"required,min=1,max=4000"`
	Type       string             `json:"type" binding:"required,oneof=MULTIPLE_CHOICE ESSAY"`
	Points     float64            `json:"points" binding:"omitempty,min=0,max=999.99"`
	OrderIndex int                `json:"order_index" binding:"min=0"`
	Options    []AddOptionRequest `json:"options" binding:"omitempty,dive"`
}

// AddOptionRequest is one option of a question being created.
type AddOptionRequest struct {
	Content   string `json:"content" binding:"required,min=1,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
