package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thiexam/thiexam-backend/internal/model"
)

// ProctoringRepository persists proctoring events. Inserts only: the type
// deliberately has no update or delete method.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// BulkInsert appends a batch of events via COPY.
func (r *ProctoringRepository) BulkInsert(ctx context.Context, logs []model.ProctoringLog) error {
	rows := make([][]interface{}, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []interface{}{l.AttemptID, l.EventType, l.LogTime, []byte(l.Details)})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctoring_logs"},
		[]string{"attempt_id", "event_type", "log_time", "details"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert appends a single event. Fallback path when a bulk insert fails.
func (r *ProctoringRepository) Insert(ctx context.Context, l *model.ProctoringLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_logs (attempt_id, event_type, log_time, details)
		 VALUES ($1, $2, $3, $4)`,
		l.AttemptID, l.EventType, l.LogTime, []byte(l.Details))
	return err
}

// ListByAttempt reads the attempt's event sequence ordered by log time, ties
// broken by insertion id. Re-readable without side effects.
func (r *ProctoringRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.ProctoringLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, event_type, log_time, details
		 FROM proctoring_logs
		 WHERE attempt_id = $1
		 ORDER BY log_time, id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.ProctoringLog
	for rows.Next() {
		var l model.ProctoringLog
		if err := rows.Scan(&l.ID, &l.AttemptID, &l.EventType, &l.LogTime, &l.Details); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
