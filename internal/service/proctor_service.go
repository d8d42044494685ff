package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/config"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
)

// ProctorService is the append-only proctoring event sink. Events go through
// a Redis queue and land in PostgreSQL in batches; reads come straight from
// PostgreSQL in log-time order.
type ProctorService struct {
	proctorRepo *repository.ProctoringRepository
	attemptRepo *repository.AttemptRepository
	sessionRepo *repository.SessionRepository
	examRepo    *repository.ExamRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	proctorRepo *repository.ProctoringRepository,
	attemptRepo *repository.AttemptRepository,
	sessionRepo *repository.SessionRepository,
	examRepo *repository.ExamRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		proctorRepo: proctorRepo,
		attemptRepo: attemptRepo,
		sessionRepo: sessionRepo,
		examRepo:    examRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "proctor_service").Logger(),
	}
}

// Append records a proctoring event against an attempt. The event is stamped
// here, queued for batched persistence, and fanned out to the session's live
// monitor channel. Appending never mutates the attempt itself.
func (s *ProctorService) Append(ctx context.Context, studentID int, attemptID uuid.UUID, req *model.ProctorEventRequest) error {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return ErrNotAttemptOwner
	}

	event := model.ProctoringLog{
		AttemptID: attemptID,
		EventType: req.EventType,
		LogTime:   time.Now(),
		Details:   req.Details,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProctorQueue, payload).Err(); err != nil {
		// Queue down: write through directly rather than drop the event.
		s.log.Warn().Err(err).Msg("Proctor queue unavailable, inserting directly")
		if err := s.proctorRepo.Insert(ctx, &event); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := s.rdb.Publish(ctx, config.CacheKey.SessionMonitorChannel(attempt.SessionID), payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish monitor event")
	}
	return nil
}

// Read returns the attempt's full event sequence for its owning teacher,
// ordered by log time. Reading has no side effects and can be repeated.
func (s *ProctorService) Read(ctx context.Context, teacherID int, attemptID uuid.UUID) ([]model.ProctoringLog, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, ErrAttemptNotFound
	}
	session, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	exam, err := s.examRepo.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	return s.proctorRepo.ListByAttempt(ctx, attemptID)
}

// DrainQueue pops up to max pending events from the queue without blocking.
// Used on shutdown so buffered events are not stranded in Redis.
func (s *ProctorService) DrainQueue(ctx context.Context, max int) ([]model.ProctoringLog, error) {
	var events []model.ProctoringLog
	for len(events) < max {
		raw, err := s.rdb.LPop(ctx, config.WorkerKey.PersistProctorQueue).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return events, err
		}
		var event model.ProctoringLog
		if err := json.Unmarshal(raw, &event); err != nil {
			s.log.Error().Err(err).Msg("Dropping malformed proctor event")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
