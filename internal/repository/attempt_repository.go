package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// AttemptResult combines student identity with attempt outcome for the
// teacher review surface.
type AttemptResult struct {
	AttemptID   uuid.UUID           `json:"attempt_id"`
	StudentID   int                 `json:"student_id"`
	StudentName string              `json:"student_name"`
	Status      model.AttemptStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	SubmittedAt *time.Time          `json:"submitted_at"`
	TotalScore  *float64            `json:"total_score"`
	Passed      *bool               `json:"passed"`
}

// AttemptRepository handles student attempt data access. All state
// transitions are conditional single-statement updates: the WHERE clause on
// status is the compare half of the compare-and-set, the row count tells the
// caller whether it won.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt. The partial unique index on
// (session_id, student_id) WHERE status = 'IN_PROGRESS' makes concurrent
// starts race safely: exactly one insert lands, the rest see no row and
// refetch the winner.
func (r *AttemptRepository) Create(ctx context.Context, a *model.StudentAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO student_attempts (session_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, student_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		 RETURNING id, started_at`,
		a.SessionID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// FindInProgress retrieves the in-progress attempt for a (session, student)
// pair, if one exists.
func (r *AttemptRepository) FindInProgress(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.StudentAttempt, error) {
	return r.scanOne(ctx,
		`SELECT id, session_id, student_id, started_at, submitted_at, total_score, passed, status
		 FROM student_attempts
		 WHERE session_id = $1 AND student_id = $2 AND status = 'IN_PROGRESS'`,
		sessionID, studentID)
}

// FindLatest retrieves the most recently started attempt for a (session,
// student) pair, regardless of status.
func (r *AttemptRepository) FindLatest(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.StudentAttempt, error) {
	return r.scanOne(ctx,
		`SELECT id, session_id, student_id, started_at, submitted_at, total_score, passed, status
		 FROM student_attempts
		 WHERE session_id = $1 AND student_id = $2
		 ORDER BY started_at DESC LIMIT 1`,
		sessionID, studentID)
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StudentAttempt, error) {
	return r.scanOne(ctx,
		`SELECT id, session_id, student_id, started_at, submitted_at, total_score, passed, status
		 FROM student_attempts WHERE id = $1`, id)
}

// Exists reports whether the attempt exists at all.
func (r *AttemptRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_attempts WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// CloseOut atomically moves an IN_PROGRESS attempt to a terminal status and
// stamps submitted_at. Returns false when the attempt already left
// IN_PROGRESS — the caller lost the race and must read the winner's result.
func (r *AttemptRepository) CloseOut(ctx context.Context, id uuid.UUID, to model.AttemptStatus, submittedAt time.Time) (bool, error) {
	if !model.CanTransition(model.AttemptStatusInProgress, to) {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE student_attempts
		 SET status = $1, submitted_at = $2
		 WHERE id = $3 AND status = 'IN_PROGRESS'`,
		to, submittedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordScore persists the scoring result exactly once. For the submit path
// it also advances SUBMITTED → GRADED; for the expiry path the status stays
// EXPIRED and only the score lands. The total_score IS NULL guard makes the
// write idempotent under retries.
func (r *AttemptRepository) RecordScore(ctx context.Context, id uuid.UUID, from model.AttemptStatus, score float64, passed *bool) (bool, error) {
	status := from
	if from == model.AttemptStatusSubmitted {
		status = model.AttemptStatusGraded
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE student_attempts
		 SET status = $1, total_score = $2, passed = $3
		 WHERE id = $4 AND status = $5 AND total_score IS NULL`,
		status, score, passed, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpiredCandidates returns ids of in-progress attempts whose deadline
// has passed. Consumed by the periodic expiry sweep.
func (r *AttemptRepository) ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id
		 FROM student_attempts a
		 JOIN exam_sessions s ON a.session_id = s.id
		 JOIN exams e ON s.exam_id = e.id
		 WHERE a.status = 'IN_PROGRESS'
		   AND a.started_at + make_interval(mins => e.duration_minutes) < $1
		 LIMIT $2`,
		now, limit)
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

// ListBySession retrieves attempt results for a session with pagination, for
// teacher review.
func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, page, perPage int) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM student_attempts WHERE session_id = $1`, sessionID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.student_id, u.name, a.status, a.started_at, a.submitted_at, a.total_score, a.passed
		 FROM student_attempts a
		 JOIN users u ON a.student_id = u.id
		 WHERE a.session_id = $1
		 ORDER BY u.name, a.started_at
		 LIMIT $2 OFFSET $3`,
		sessionID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(&res.AttemptID, &res.StudentID, &res.StudentName, &res.Status, &res.StartedAt, &res.SubmittedAt, &res.TotalScore, &res.Passed); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

func (r *AttemptRepository) scanOne(ctx context.Context, query string, args ...any) (*model.StudentAttempt, error) {
	a := &model.StudentAttempt{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.SessionID, &a.StudentID, &a.StartedAt, &a.SubmittedAt, &a.TotalScore, &a.Passed, &a.Status)
	if err != nil {
		return nil, err
	}
	return a, nil
}
