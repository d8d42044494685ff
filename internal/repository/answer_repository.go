package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/scoring"
)

// AnswerRepository is the per-attempt answer ledger. Writes are per-row
// atomic upserts — last write wins per (attempt, question), no history.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert records or overwrites the answer for one question of an attempt.
// The flag is preserved: flagging and answering are independent.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.StudentAnswer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO student_answers (attempt_id, question_id, selected_option_id, essay_answer)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_option_id = EXCLUDED.selected_option_id,
		     essay_answer = EXCLUDED.essay_answer,
		     updated_at = NOW()
		 RETURNING id, is_flagged, updated_at`,
		a.AttemptID, a.QuestionID, a.SelectedOptionID, a.EssayAnswer,
	).Scan(&a.ID, &a.IsFlagged, &a.UpdatedAt)
}

// SetFlag sets the review flag for a question, creating an empty ledger row
// if the student flags before answering.
func (r *AnswerRepository) SetFlag(ctx context.Context, attemptID, questionID uuid.UUID, flagged bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_answers (attempt_id, question_id, is_flagged)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET is_flagged = EXCLUDED.is_flagged, updated_at = NOW()`,
		attemptID, questionID, flagged)
	return err
}

// ListByAttempt retrieves the attempt's full ledger.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.StudentAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_option_id, essay_answer, is_flagged, updated_at
		 FROM student_answers WHERE attempt_id = $1 ORDER BY id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.StudentAnswer
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedOptionID, &a.EssayAnswer, &a.IsFlagged, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListForScoring retrieves the ledger in the shape the scoring engine takes.
func (r *AnswerRepository) ListForScoring(ctx context.Context, attemptID uuid.UUID) ([]scoring.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, selected_option_id
		 FROM student_answers WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []scoring.Answer
	for rows.Next() {
		var a scoring.Answer
		if err := rows.Scan(&a.QuestionID, &a.SelectedOptionID); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
