package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/repository"
)

// Exam management errors.
var (
	ErrExamNotFound = errors.New("exam not found")
	ErrNotExamOwner = errors.New("not the owner of this exam")
	// ErrExamLocked guards attempt integrity: once any student has started
	// against the exam, its questions are frozen.
	ErrExamLocked = errors.New("exam has started attempts and can no longer be edited")
	// ErrBadAnswerKey rejects a multiple-choice question that does not have
	// exactly one correct option.
	ErrBadAnswerKey = errors.New("multiple-choice question must have exactly one correct option")
)

// ExamService is the teacher-facing exam and question management surface.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// Create authors a new exam.
func (s *ExamService) Create(ctx context.Context, teacherID int, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		TeacherID:         teacherID,
		Title:             req.Title,
		Description:       req.Description,
		DurationMinutes:   req.DurationMinutes,
		PassScore:         req.PassScore,
		IsRandom:          req.IsRandom,
		AntiCheatSettings: req.AntiCheatSettings,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Int("teacher_id", teacherID).Msg("Exam created")
	return exam, nil
}

// GetOwned retrieves an exam and verifies ownership.
func (s *ExamService) GetOwned(ctx context.Context, teacherID int, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	return exam, nil
}

// List retrieves the teacher's exams.
func (s *ExamService) List(ctx context.Context, teacherID int) ([]model.Exam, error) {
	return s.examRepo.ListByTeacher(ctx, teacherID)
}

// ListQuestions retrieves the exam's full question set, answer key included,
// for its owner.
func (s *ExamService) ListQuestions(ctx context.Context, teacherID int, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.GetOwned(ctx, teacherID, examID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// ReplaceQuestions swaps the exam's entire question set. Rejected once any
// attempt has been started against the exam, so grades always refer to the
// questions the student actually saw.
func (s *ExamService) ReplaceQuestions(ctx context.Context, teacherID int, examID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	if _, err := s.GetOwned(ctx, teacherID, examID); err != nil {
		return nil, err
	}

	started, err := s.examRepo.HasStartedSession(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("check started sessions: %w", err)
	}
	if started {
		return nil, ErrExamLocked
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for _, qr := range req.Questions {
		q := model.Question{
			Content:    qr.Content,
			Type:       model.QuestionType(qr.Type),
			Points:     qr.Points,
			OrderIndex: qr.OrderIndex,
		}
		correct := 0
		for _, or := range qr.Options {
			if or.IsCorrect {
				correct++
			}
			q.Options = append(q.Options, model.QuestionOption{Content: or.Content, IsCorrect: or.IsCorrect})
		}
		if q.Type == model.QuestionTypeMultipleChoice && correct != 1 {
			return nil, ErrBadAnswerKey
		}
		questions = append(questions, q)
	}

	if err := s.questionRepo.ReplaceForExam(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("count", len(questions)).
		Msg("Exam questions replaced")
	return questions, nil
}
