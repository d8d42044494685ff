package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// ErrDuplicateAccessCode indicates the generated access code collided with an
// existing session's code. Codes are unique across all sessions regardless of
// activation state.
var ErrDuplicateAccessCode = errors.New("access code already in use")

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session. The unique index on access_code turns a code
// collision into ErrDuplicateAccessCode so the caller can regenerate.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, access_code, start_time, end_time, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.ExamID, s.AccessCode, s.StartTime, s.EndTime, s.IsActive,
	).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccessCode
		}
		return err
	}
	return nil
}

// GetByCode retrieves a session by its access code. Codes are case-sensitive;
// the lookup is exact.
func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, access_code, start_time, end_time, is_active
		 FROM exam_sessions WHERE access_code = $1`, code,
	).Scan(&s.ID, &s.ExamID, &s.AccessCode, &s.StartTime, &s.EndTime, &s.IsActive)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, access_code, start_time, end_time, is_active
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.AccessCode, &s.StartTime, &s.EndTime, &s.IsActive)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SetActive flips the session's activation flag.
func (r *SessionRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("session not found")
	}
	return nil
}

// ListByExam retrieves all sessions of an exam, newest first.
func (r *SessionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, access_code, start_time, end_time, is_active
		 FROM exam_sessions WHERE exam_id = $1 ORDER BY start_time DESC NULLS LAST, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.ExamID, &s.AccessCode, &s.StartTime, &s.EndTime, &s.IsActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListActive retrieves every active session. Used to prewarm the access-code
// cache on startup.
func (r *SessionRepository) ListActive(ctx context.Context) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, access_code, start_time, end_time, is_active
		 FROM exam_sessions WHERE is_active`, // window checked at resolve time
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.ExamID, &s.AccessCode, &s.StartTime, &s.EndTime, &s.IsActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
