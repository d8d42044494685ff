package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (teacher_id, title, description, duration_minutes, pass_score, is_random, anti_cheat_settings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.TeacherID, e.Title, e.Description, e.DurationMinutes, e.PassScore, e.IsRandom, e.AntiCheatSettings,
	).Scan(&e.ID, &e.CreatedAt)
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, title, description, duration_minutes, pass_score, is_random, anti_cheat_settings, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.TeacherID, &e.Title, &e.Description, &e.DurationMinutes, &e.PassScore, &e.IsRandom, &e.AntiCheatSettings, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByTeacher retrieves all exams authored by a teacher.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID int) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, teacher_id, title, description, duration_minutes, pass_score, is_random, anti_cheat_settings, created_at
		 FROM exams WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Description, &e.DurationMinutes, &e.PassScore, &e.IsRandom, &e.AntiCheatSettings, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// HasStartedSession reports whether any attempt exists against any session of
// the exam. Exams with started sessions are immutable.
func (r *ExamRepository) HasStartedSession(ctx context.Context, examID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM student_attempts a
			JOIN exam_sessions s ON a.session_id = s.id
			WHERE s.exam_id = $1
		)`, examID,
	).Scan(&exists)
	return exists, err
}
