package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/config"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
)

// Access-code resolution errors. Resolve distinguishes "no such code" from
// "known code, not currently enterable" so the client can show the right
// message.
var (
	ErrAccessCodeNotFound  = errors.New("no session has this access code")
	ErrSessionInactive     = errors.New("session is not active")
	ErrSessionWindowClosed = errors.New("session is outside its scheduled window")
	ErrNotSessionOwner     = errors.New("not the owner of this session's exam")
)

// sessionCacheTTL bounds staleness of the access-code cache. Deactivation
// invalidates explicitly; the TTL only covers out-of-band DB edits.
const sessionCacheTTL = 5 * time.Minute

// codeGenRetries is how many collisions the code generator tolerates before
// giving up. With a 58-char alphabet and 8 positions, one retry is already
// rare.
const codeGenRetries = 5

// SessionService is the access-code registry plus the teacher-facing session
// management surface.
type SessionService struct {
	sessionRepo  *repository.SessionRepository
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
	codeLength   int
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
	codeLength int,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "session_service").Logger(),
		codeLength:   codeLength,
	}
}

// Create schedules a new session for an exam with a server-generated unique
// access code. The session starts active.
func (s *SessionService) Create(ctx context.Context, teacherID int, req *model.CreateSessionRequest) (*model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}

	session := &model.ExamSession{
		ExamID:    req.ExamID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  true,
	}

	// Regenerate on the (unlikely) collision; the unique index is the
	// arbiter, not an in-process check.
	for attempt := 0; ; attempt++ {
		code, err := generateAccessCode(s.codeLength)
		if err != nil {
			return nil, err
		}
		session.AccessCode = code

		err = s.sessionRepo.Create(ctx, session)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateAccessCode) && attempt < codeGenRetries {
			continue
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.warmCaches(ctx, session)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", session.ExamID.String()).
		Msg("Session created")
	return session, nil
}

// Resolve maps an access code to its session. Read-only; no side effects on
// the session. The lookup is the hot path of exam entry and is served from
// Redis, self-healing from PostgreSQL on a miss.
func (s *SessionService) Resolve(ctx context.Context, code string) (*model.ExamSession, error) {
	session, err := s.lookupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	if !session.WithinWindow(time.Now()) {
		return nil, ErrSessionWindowClosed
	}
	return session, nil
}

// SetActive activates or deactivates a session and invalidates its cache
// entry so the change is visible immediately.
func (s *SessionService) SetActive(ctx context.Context, teacherID int, sessionID uuid.UUID, active bool) (*model.ExamSession, error) {
	session, err := s.GetOwned(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.SetActive(ctx, sessionID, active); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	session.IsActive = active

	if err := s.rdb.Del(ctx, config.CacheKey.SessionByCodeKey(session.AccessCode)).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to invalidate code cache")
	}
	if active {
		s.warmCaches(ctx, session)
	}
	return session, nil
}

// ListByExam retrieves the exam's sessions for its owner.
func (s *SessionService) ListByExam(ctx context.Context, teacherID int, examID uuid.UUID) ([]model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	return s.sessionRepo.ListByExam(ctx, examID)
}

// GetOwned retrieves a session and verifies the caller owns its exam.
func (s *SessionService) GetOwned(ctx context.Context, teacherID int, sessionID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccessCodeNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	exam, err := s.examRepo.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// PrewarmActiveSessions loads every active session's code mapping and exam
// question set into Redis on startup, ahead of the entry rush.
func (s *SessionService) PrewarmActiveSessions(ctx context.Context) error {
	sessions, err := s.sessionRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}

	for i := range sessions {
		s.warmCaches(ctx, &sessions[i])
	}

	s.log.Info().Int("count", len(sessions)).Msg("Prewarmed active sessions")
	return nil
}

// warmCaches stores the code→session mapping and the exam's question-id set.
// Failures are logged, not fatal — the DB fallback covers misses.
func (s *SessionService) warmCaches(ctx context.Context, session *model.ExamSession) {
	raw, err := json.Marshal(session)
	if err == nil {
		if err := s.rdb.Set(ctx, config.CacheKey.SessionByCodeKey(session.AccessCode), raw, sessionCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache session by code")
		}
	}

	ids, err := s.questionRepo.ListQuestionIDs(ctx, session.ExamID)
	if err != nil || len(ids) == 0 {
		return
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id.String()
	}
	key := config.CacheKey.ExamQuestionSetKey(session.ExamID)
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, sessionCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache question set")
	}
}

func (s *SessionService) lookupByCode(ctx context.Context, code string) (*model.ExamSession, error) {
	cacheKey := config.CacheKey.SessionByCodeKey(code)

	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		session := &model.ExamSession{}
		if err := json.Unmarshal(raw, session); err == nil {
			return session, nil
		}
		// Corrupt cache entry: fall through to DB and rewrite it.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	session, err := s.sessionRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccessCodeNotFound
		}
		return nil, fmt.Errorf("get session by code: %w", err)
	}

	if raw, err := json.Marshal(session); err == nil {
		_ = s.rdb.Set(ctx, cacheKey, raw, sessionCacheTTL).Err()
	}
	return session, nil
}
