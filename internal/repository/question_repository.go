package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/scoring"
)

// QuestionRepository is the read side of the question bank plus the minimal
// write surface teachers use to populate an exam.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ReplaceForExam atomically replaces the exam's question set. Options cascade
// with their questions.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		q.ExamID = examID
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, content, question_type, points, order_index)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			examID, q.Content, q.Type, q.Points, q.OrderIndex,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}

		for j := range q.Options {
			o := &q.Options[j]
			o.QuestionID = q.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO question_options (question_id, content, is_correct)
				 VALUES ($1, $2, $3)
				 RETURNING id`,
				q.ID, o.Content, o.IsCorrect,
			).Scan(&o.ID)
			if err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// ListByExam retrieves the exam's ordered question list with options.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, content, question_type, points, order_index
		 FROM questions WHERE exam_id = $1 ORDER BY order_index, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Content, &q.Type, &q.Points, &q.OrderIndex); err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.content, o.is_correct
		 FROM question_options o
		 JOIN questions q ON o.question_id = q.id
		 WHERE q.exam_id = $1 ORDER BY o.id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var o model.QuestionOption
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Content, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}

// ListQuestionIDs returns the ids of all questions in the exam.
func (r *QuestionRepository) ListQuestionIDs(ctx context.Context, examID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE exam_id = $1 ORDER BY order_index, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsQuestionInExam reports whether the question belongs to the exam.
func (r *QuestionRepository) IsQuestionInExam(ctx context.Context, examID, questionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1 AND exam_id = $2)`,
		questionID, examID,
	).Scan(&exists)
	return exists, err
}

// GetQuestion retrieves one question without its options.
func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, content, question_type, points, order_index
		 FROM questions WHERE id = $1`, questionID,
	).Scan(&q.ID, &q.ExamID, &q.Content, &q.Type, &q.Points, &q.OrderIndex)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// OptionBelongsToQuestion reports whether the option is a choice of the question.
func (r *QuestionRepository) OptionBelongsToQuestion(ctx context.Context, questionID, optionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_options WHERE id = $1 AND question_id = $2)`,
		optionID, questionID,
	).Scan(&exists)
	return exists, err
}

// AnswerKeySnapshot reads the exam's scoring key as of now: one row per
// question with its unique correct option, if any. This snapshot is the
// ground truth grading uses; later edits to options never re-grade history.
func (r *QuestionRepository) AnswerKeySnapshot(ctx context.Context, examID uuid.UUID) ([]scoring.QuestionKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_type, q.points,
		        (SELECT o.id FROM question_options o
		         WHERE o.question_id = q.id AND o.is_correct
		         ORDER BY o.id LIMIT 1)
		 FROM questions q
		 WHERE q.exam_id = $1
		 ORDER BY q.order_index, q.id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []scoring.QuestionKey
	for rows.Next() {
		var k scoring.QuestionKey
		var qtype model.QuestionType
		if err := rows.Scan(&k.QuestionID, &qtype, &k.Points, &k.CorrectOptionID); err != nil {
			return nil, err
		}
		k.Type = qtype
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
