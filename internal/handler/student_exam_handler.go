package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/middleware"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/response"
	"github.com/thiexam/thiexam-backend/internal/service"
	"github.com/thiexam/thiexam-backend/internal/validator"
)

// StudentExamHandler handles the student-facing attempt lifecycle.
type StudentExamHandler struct {
	attemptService *service.AttemptService
	answerService  *service.AnswerService
	proctorService *service.ProctorService
	log            zerolog.Logger
}

// NewStudentExamHandler creates a new StudentExamHandler.
func NewStudentExamHandler(
	attemptService *service.AttemptService,
	answerService *service.AnswerService,
	proctorService *service.ProctorService,
	log zerolog.Logger,
) *StudentExamHandler {
	return &StudentExamHandler{
		attemptService: attemptService,
		answerService:  answerService,
		proctorService: proctorService,
		log:            log.With().Str("component", "student_exam_handler").Logger(),
	}
}

// EnterSession godoc
// POST /api/v1/student/sessions/enter
// Exchanges an access code for an attempt. Re-entering with the same code
// resumes the existing attempt rather than opening a second one.
func (h *StudentExamHandler) EnterSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.EnterSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.UserID, req.AccessCode)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/student/attempts/:attempt_id/paper
// Returns the exam paper in this attempt's presentation order, answer key
// stripped.
func (h *StudentExamHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	paper, err := h.attemptService.Paper(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetState godoc
// GET /api/v1/student/attempts/:attempt_id/state
// Reload view: saved answers plus the server-computed remaining time.
func (h *StudentExamHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// RecordAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers/:question_id
// Saves or overwrites one answer. Last write wins.
func (h *StudentExamHandler) RecordAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.answerService.Record(c.Request.Context(), claims.UserID, attemptID, questionID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// FlagAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers/:question_id/flag
// Toggles the review flag without touching the answer content.
func (h *StudentExamHandler) FlagAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.FlagAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.answerService.Flag(c.Request.Context(), claims.UserID, attemptID, questionID, req.Flagged); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flagged": req.Flagged})
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Finalizes the attempt and grades it. Submitting twice returns the same
// result.
func (h *StudentExamHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Submit failed")
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ReportProctorEvent godoc
// POST /api/v1/student/attempts/:attempt_id/proctoring
// Appends an anti-cheat event to the attempt's log.
func (h *StudentExamHandler) ReportProctorEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.ProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctorService.Append(c.Request.Context(), claims.UserID, attemptID, &req); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{})
}

func parseAttemptID(c *gin.Context) (uuid.UUID, bool) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return attemptID, true
}
