package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/config"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
)

// Ledger write errors.
var (
	ErrQuestionNotInExam   = errors.New("question does not belong to this exam")
	ErrAnswerTypeMismatch  = errors.New("answer content does not match question type")
	ErrOptionNotInQuestion = errors.New("option does not belong to this question")
)

// AnswerService is the write surface of the per-attempt answer ledger. Every
// write goes through the in-progress guard first, so a saved answer always
// belongs to a running attempt of the caller.
type AnswerService struct {
	answerRepo   *repository.AnswerRepository
	questionRepo *repository.QuestionRepository
	attempts     *AttemptService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(
	answerRepo *repository.AnswerRepository,
	questionRepo *repository.QuestionRepository,
	attempts *AttemptService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AnswerService {
	return &AnswerService{
		answerRepo:   answerRepo,
		questionRepo: questionRepo,
		attempts:     attempts,
		rdb:          rdb,
		log:          log.With().Str("component", "answer_service").Logger(),
	}
}

// Record saves or overwrites the answer for one question. Last write wins;
// the review flag on the row is untouched.
func (s *AnswerService) Record(ctx context.Context, studentID int, attemptID, questionID uuid.UUID, req *model.RecordAnswerRequest) (*model.StudentAnswer, error) {
	_, exam, err := s.attempts.GuardInProgress(ctx, studentID, attemptID)
	if err != nil {
		return nil, err
	}

	if err := s.checkMembership(ctx, exam.ID, questionID); err != nil {
		return nil, err
	}

	question, err := s.questionRepo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	switch question.Type {
	case model.QuestionTypeMultipleChoice:
		if req.SelectedOptionID == nil || req.EssayAnswer != nil {
			return nil, ErrAnswerTypeMismatch
		}
		ok, err := s.questionRepo.OptionBelongsToQuestion(ctx, questionID, *req.SelectedOptionID)
		if err != nil {
			return nil, fmt.Errorf("check option: %w", err)
		}
		if !ok {
			return nil, ErrOptionNotInQuestion
		}
	case model.QuestionTypeEssay:
		if req.EssayAnswer == nil || req.SelectedOptionID != nil {
			return nil, ErrAnswerTypeMismatch
		}
	default:
		return nil, ErrAnswerTypeMismatch
	}

	answer := &model.StudentAnswer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedOptionID: req.SelectedOptionID,
		EssayAnswer:      req.EssayAnswer,
	}
	if err := s.answerRepo.Upsert(ctx, answer); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	return answer, nil
}

// Flag sets or clears the review flag for a question, independent of whether
// an answer exists yet.
func (s *AnswerService) Flag(ctx context.Context, studentID int, attemptID, questionID uuid.UUID, flagged bool) error {
	_, exam, err := s.attempts.GuardInProgress(ctx, studentID, attemptID)
	if err != nil {
		return err
	}
	if err := s.checkMembership(ctx, exam.ID, questionID); err != nil {
		return err
	}
	if err := s.answerRepo.SetFlag(ctx, attemptID, questionID, flagged); err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}

// checkMembership verifies the question belongs to the exam, preferring the
// cached question-id set and falling back to the database on a miss.
func (s *AnswerService) checkMembership(ctx context.Context, examID, questionID uuid.UUID) error {
	key := config.CacheKey.ExamQuestionSetKey(examID)
	member, err := s.rdb.SIsMember(ctx, key, questionID.String()).Result()
	if err == nil {
		if member {
			return nil
		}
		// Could be a genuine mismatch or an evicted set. Only trust the
		// cache for positive hits.
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Question set cache unavailable")
	}

	ok, err := s.questionRepo.IsQuestionInExam(ctx, examID, questionID)
	if err != nil {
		return fmt.Errorf("check question membership: %w", err)
	}
	if !ok {
		return ErrQuestionNotInExam
	}
	return nil
}
