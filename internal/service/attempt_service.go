package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
	"github.com/thiexam/thiexam-backend/internal/scoring"
)

// Attempt lifecycle errors.
var (
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrNotAttemptOwner      = errors.New("attempt belongs to another student")
	ErrAttemptNotInProgress = errors.New("attempt is no longer in progress")
	ErrNoQuestions          = errors.New("exam has no questions")
	// ErrScoringIncomplete reports that the attempt was submitted but grading
	// failed. The attempt stays SUBMITTED; a retried submit re-runs grading.
	ErrScoringIncomplete = errors.New("submission accepted, scoring incomplete")
)

// expiryBatchSize caps how many overdue attempts one sweep pass finalizes.
const expiryBatchSize = 100

// AttemptService drives the attempt state machine. Every transition funnels
// through a conditional UPDATE in the repository; this layer decides which
// transition applies and runs grading after the terminal write, never inside
// it.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	answerRepo   *repository.AnswerRepository
	questionRepo *repository.QuestionRepository
	examRepo     *repository.ExamRepository
	sessionRepo  *repository.SessionRepository
	sessions     *SessionService
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	answerRepo *repository.AnswerRepository,
	questionRepo *repository.QuestionRepository,
	examRepo *repository.ExamRepository,
	sessionRepo *repository.SessionRepository,
	sessions *SessionService,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		answerRepo:   answerRepo,
		questionRepo: questionRepo,
		examRepo:     examRepo,
		sessionRepo:  sessionRepo,
		sessions:     sessions,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start enters a session by access code. Idempotent: a student who already
// holds an attempt for this session gets that attempt back instead of a
// duplicate. Only an ABANDONED prior attempt opens the door to a fresh one.
func (s *AttemptService) Start(ctx context.Context, studentID int, accessCode string) (*model.StudentAttempt, error) {
	session, err := s.sessions.Resolve(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	exam, err := s.examRepo.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	latest, err := s.attemptRepo.FindLatest(ctx, session.ID, studentID)
	switch {
	case err == nil:
		if latest.Status == model.AttemptStatusInProgress {
			return s.maybeExpire(ctx, latest, exam)
		}
		if latest.Status != model.AttemptStatusAbandoned {
			return latest, nil
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First entry.
	default:
		return nil, fmt.Errorf("find attempt: %w", err)
	}

	ids, err := s.questionRepo.ListQuestionIDs(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoQuestions
	}

	attempt := &model.StudentAttempt{
		SessionID: session.ID,
		StudentID: studentID,
		Status:    model.AttemptStatusInProgress,
	}
	err = s.attemptRepo.Create(ctx, attempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a concurrent start; the winner's row is ours to resume.
			return s.attemptRepo.FindInProgress(ctx, session.ID, studentID)
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("session_id", session.ID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")
	return attempt, nil
}

// State returns the reload view of an attempt: ledger plus derived clock.
// Overdue attempts are finalized on read, so the reported status is never a
// stale IN_PROGRESS.
func (s *AttemptService) State(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.AttemptState, error) {
	attempt, exam, err := s.loadOwned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusInProgress {
		attempt, err = s.maybeExpire(ctx, attempt, exam)
		if err != nil {
			return nil, err
		}
	}

	answers, err := s.answerRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	state := &model.AttemptState{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		Answers:   answers,
	}
	if attempt.Status == model.AttemptStatusInProgress {
		state.RemainingTimeSeconds = attempt.TimeRemaining(exam.DurationMinutes, time.Now()).Seconds()
	}
	return state, nil
}

// Paper assembles the student-facing exam paper for a running attempt.
// Randomized exams present questions in a per-attempt order that is stable
// across reloads.
func (s *AttemptService) Paper(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.ExamPaper, error) {
	attempt, exam, err := s.loadOwned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	attempt, err = s.maybeExpire(ctx, attempt, exam)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptNotInProgress
	}

	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	ordered := orderForAttempt(questions, exam.IsRandom, attempt.ID)
	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		AttemptID:       attempt.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       make([]model.QuestionForPaper, 0, len(ordered)),
	}
	for _, q := range ordered {
		pq := model.QuestionForPaper{
			ID:      q.ID,
			Content: q.Content,
			Type:    q.Type,
			Points:  q.Points,
		}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, model.OptionForPaper{ID: o.ID, Content: o.Content})
		}
		paper.Questions = append(paper.Questions, pq)
	}
	return paper, nil
}

// Submit finalizes an attempt on the student's request. Late submits are
// recorded as EXPIRED at the deadline rather than SUBMITTED at wall clock.
// Re-submitting a finished attempt returns the existing result unchanged.
func (s *AttemptService) Submit(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.StudentAttempt, error) {
	attempt, exam, err := s.loadOwned(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		if attempt.Status == model.AttemptStatusSubmitted {
			// A prior submit landed but grading did not. Retry it.
			return s.grade(ctx, attempt, exam, model.AttemptStatusSubmitted)
		}
		return attempt, nil
	}

	now := time.Now()
	if now.After(attempt.Deadline(exam.DurationMinutes)) {
		return s.finalizeExpired(ctx, attempt, exam)
	}

	won, err := s.attemptRepo.CloseOut(ctx, attemptID, model.AttemptStatusSubmitted, now)
	if err != nil {
		return nil, fmt.Errorf("close out attempt: %w", err)
	}
	if !won {
		// Another submit or the sweep got there first.
		return s.settleLostRace(ctx, attemptID, exam)
	}

	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt submitted")
	attempt.Status = model.AttemptStatusSubmitted
	return s.grade(ctx, attempt, exam, model.AttemptStatusSubmitted)
}

// Expire finalizes one overdue attempt on behalf of the sweep. No ownership
// check: the caller is the system.
func (s *AttemptService) Expire(ctx context.Context, attemptID uuid.UUID) (*model.StudentAttempt, error) {
	attempt, _, exam, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return attempt, nil
	}
	if time.Now().Before(attempt.Deadline(exam.DurationMinutes)) {
		return attempt, nil
	}
	return s.finalizeExpired(ctx, attempt, exam)
}

// Abandon voids an in-progress attempt without grading. Teacher action; the
// student may start over afterwards.
func (s *AttemptService) Abandon(ctx context.Context, teacherID int, attemptID uuid.UUID) (*model.StudentAttempt, error) {
	_, _, exam, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}

	won, err := s.attemptRepo.CloseOut(ctx, attemptID, model.AttemptStatusAbandoned, time.Now())
	if err != nil {
		return nil, fmt.Errorf("close out attempt: %w", err)
	}
	if !won {
		return nil, ErrAttemptNotInProgress
	}

	s.log.Info().Str("attempt_id", attemptID.String()).Int("teacher_id", teacherID).Msg("Attempt abandoned")
	return s.attemptRepo.GetByID(ctx, attemptID)
}

// SweepExpired finalizes a batch of overdue attempts. Returns how many it
// closed; failures on individual attempts are logged and skipped so one bad
// row cannot stall the sweep.
func (s *AttemptService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.attemptRepo.ListExpiredCandidates(ctx, time.Now(), expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired candidates: %w", err)
	}

	closed := 0
	for _, id := range ids {
		if _, err := s.Expire(ctx, id); err != nil {
			s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Failed to expire attempt")
			continue
		}
		closed++
	}
	return closed, nil
}

// GuardInProgress loads an attempt for a ledger write: the caller must own
// it and it must still be running. Overdue attempts are finalized here and
// the write rejected, which is how the deadline is actually enforced.
func (s *AttemptService) GuardInProgress(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.StudentAttempt, *model.Exam, error) {
	attempt, exam, err := s.loadOwned(ctx, studentID, attemptID)
	if err != nil {
		return nil, nil, err
	}
	attempt, err = s.maybeExpire(ctx, attempt, exam)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, nil, ErrAttemptNotInProgress
	}
	return attempt, exam, nil
}

// Results lists a session's attempt outcomes for its owning teacher.
func (s *AttemptService) Results(ctx context.Context, teacherID int, sessionID uuid.UUID, page, perPage int) ([]repository.AttemptResult, int64, error) {
	if _, err := s.sessions.GetOwned(ctx, teacherID, sessionID); err != nil {
		return nil, 0, err
	}
	return s.attemptRepo.ListBySession(ctx, sessionID, page, perPage)
}

// GetForTeacher loads an attempt and verifies the caller owns its exam.
func (s *AttemptService) GetForTeacher(ctx context.Context, teacherID int, attemptID uuid.UUID) (*model.StudentAttempt, error) {
	attempt, _, exam, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	return attempt, nil
}

// settleLostRace refetches an attempt after a lost terminal transition. The
// winner grades outside its transition lock, so the refetched row may not
// carry a score yet; finishing the grade here keeps the loser's view whole.
// The score guard makes the duplicate grade a no-op.
func (s *AttemptService) settleLostRace(ctx context.Context, attemptID uuid.UUID, exam *model.Exam) (*model.StudentAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	switch attempt.Status {
	case model.AttemptStatusSubmitted, model.AttemptStatusExpired:
		return s.grade(ctx, attempt, exam, attempt.Status)
	default:
		return attempt, nil
	}
}

// maybeExpire finalizes the attempt if its deadline has passed; otherwise it
// returns the attempt untouched.
func (s *AttemptService) maybeExpire(ctx context.Context, attempt *model.StudentAttempt, exam *model.Exam) (*model.StudentAttempt, error) {
	if attempt.Status != model.AttemptStatusInProgress {
		return attempt, nil
	}
	if time.Now().Before(attempt.Deadline(exam.DurationMinutes)) {
		return attempt, nil
	}
	return s.finalizeExpired(ctx, attempt, exam)
}

// finalizeExpired moves the attempt to EXPIRED stamped at its deadline, then
// grades whatever answers were saved. A grading failure leaves the attempt
// EXPIRED and unscored; the error is logged, not surfaced, since the student
// can do nothing about it.
func (s *AttemptService) finalizeExpired(ctx context.Context, attempt *model.StudentAttempt, exam *model.Exam) (*model.StudentAttempt, error) {
	deadline := attempt.Deadline(exam.DurationMinutes)
	won, err := s.attemptRepo.CloseOut(ctx, attempt.ID, model.AttemptStatusExpired, deadline)
	if err != nil {
		return nil, fmt.Errorf("close out attempt: %w", err)
	}
	if !won {
		settled, err := s.settleLostRace(ctx, attempt.ID, exam)
		if err != nil && errors.Is(err, ErrScoringIncomplete) {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to grade expired attempt")
			return s.attemptRepo.GetByID(ctx, attempt.ID)
		}
		return settled, err
	}

	s.log.Info().Str("attempt_id", attempt.ID.String()).Msg("Attempt expired")
	attempt.Status = model.AttemptStatusExpired

	graded, err := s.grade(ctx, attempt, exam, model.AttemptStatusExpired)
	if err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to grade expired attempt")
		return s.attemptRepo.GetByID(ctx, attempt.ID)
	}
	return graded, nil
}

// grade runs the scoring engine over the answer-key snapshot and persists the
// result once. Safe to call again after a failure: the score guard in the
// repository makes the write idempotent.
func (s *AttemptService) grade(ctx context.Context, attempt *model.StudentAttempt, exam *model.Exam, from model.AttemptStatus) (*model.StudentAttempt, error) {
	if attempt.TotalScore != nil {
		return attempt, nil
	}

	keys, err := s.questionRepo.AnswerKeySnapshot(ctx, exam.ID)
	if err != nil {
		return attempt, fmt.Errorf("%w: %v", ErrScoringIncomplete, err)
	}
	answers, err := s.answerRepo.ListForScoring(ctx, attempt.ID)
	if err != nil {
		return attempt, fmt.Errorf("%w: %v", ErrScoringIncomplete, err)
	}

	result, err := scoring.Score(keys, answers, exam.PassScore)
	if err != nil {
		return attempt, fmt.Errorf("%w: %v", ErrScoringIncomplete, err)
	}

	if _, err := s.attemptRepo.RecordScore(ctx, attempt.ID, from, result.TotalScore, result.Passed); err != nil {
		return attempt, fmt.Errorf("%w: %v", ErrScoringIncomplete, err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("total_score", result.TotalScore).
		Msg("Attempt graded")
	return s.attemptRepo.GetByID(ctx, attempt.ID)
}

func (s *AttemptService) loadOwned(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.StudentAttempt, *model.Exam, error) {
	attempt, _, exam, err := s.load(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.StudentID != studentID {
		return nil, nil, ErrNotAttemptOwner
	}
	return attempt, exam, nil
}

func (s *AttemptService) load(ctx context.Context, attemptID uuid.UUID) (*model.StudentAttempt, *model.ExamSession, *model.Exam, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, ErrAttemptNotFound
		}
		return nil, nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	session, err := s.sessionRepo.GetByID(ctx, attempt.SessionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get session: %w", err)
	}
	exam, err := s.examRepo.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get exam: %w", err)
	}
	return attempt, session, exam, nil
}
