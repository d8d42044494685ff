// Package scoring computes attempt scores from an answer-key snapshot.
// It is pure: same keys and answers always produce the same result.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// ErrMissingAnswerKey indicates a multiple-choice question without a correct
// option in the snapshot. The attempt must stay SUBMITTED so grading can be
// retried once the key is fixed — never silently zero-scored.
var ErrMissingAnswerKey = errors.New("question has no correct option in answer key")

// QuestionKey is one question's entry in the answer-key snapshot taken at
// grading time.
type QuestionKey struct {
	QuestionID      uuid.UUID
	Type            model.QuestionType
	Points          float64
	CorrectOptionID *uuid.UUID
}

// Answer is the scored view of a ledger entry.
type Answer struct {
	QuestionID       uuid.UUID
	SelectedOptionID *uuid.UUID
}

// Result is the outcome of scoring one attempt.
type Result struct {
	TotalScore float64
	// Passed is nil when the exam has no pass score (formative/ungraded).
	Passed *bool
}

// Score grades an attempt. Full credit per multiple-choice question iff the
// selected option is the unique correct one; zero otherwise, including
// unanswered. Essay questions contribute zero pending manual grading.
// Absence of an answer is never an error.
func Score(keys []QuestionKey, answers []Answer, passScore *float64) (Result, error) {
	selected := make(map[uuid.UUID]uuid.UUID, len(answers))
	for _, a := range answers {
		if a.SelectedOptionID != nil {
			selected[a.QuestionID] = *a.SelectedOptionID
		}
	}

	var total float64
	for _, k := range keys {
		if k.Type != model.QuestionTypeMultipleChoice {
			continue
		}
		if k.CorrectOptionID == nil {
			return Result{}, fmt.Errorf("question %s: %w", k.QuestionID, ErrMissingAnswerKey)
		}
		if optID, ok := selected[k.QuestionID]; ok && optID == *k.CorrectOptionID {
			total += k.Points
		}
	}

	total = roundScore(total)

	res := Result{TotalScore: total}
	if passScore != nil {
		passed := total >= *passScore
		res.Passed = &passed
	}
	return res, nil
}

// roundScore normalizes to the numeric(5,2) scale scores are persisted at.
func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
