package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/middleware"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/response"
	"github.com/thiexam/thiexam-backend/internal/service"
	"github.com/thiexam/thiexam-backend/internal/validator"
)

// SessionHandler handles teacher session management and review endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	attemptService *service.AttemptService
	proctorService *service.ProctorService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessionService *service.SessionService,
	attemptService *service.AttemptService,
	proctorService *service.ProctorService,
	log zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		attemptService: attemptService,
		proctorService: proctorService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/teacher/sessions
// Schedules a session; the generated access code comes back in the response.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create session")
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// ListSessions godoc
// GET /api/v1/teacher/exams/:exam_id/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.sessionService.ListByExam(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// SetSessionActive godoc
// PATCH /api/v1/teacher/sessions/:session_id/active
func (h *SessionHandler) SetSessionActive(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.SetActive(c.Request.Context(), claims.UserID, sessionID, *req.Active)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SessionResults godoc
// GET /api/v1/teacher/sessions/:session_id/results?page=1&per_page=50
func (h *SessionHandler) SessionResults(c *gin.Context) {
	claims := middleware.GetClaims(c)

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	results, total, err := h.attemptService.Results(c.Request.Context(), claims.UserID, sessionID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// AttemptDetail godoc
// GET /api/v1/teacher/attempts/:attempt_id
// Returns one attempt for review: status, timestamps, score.
func (h *SessionHandler) AttemptDetail(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetForTeacher(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// AttemptProctoring godoc
// GET /api/v1/teacher/attempts/:attempt_id/proctoring
// Returns the attempt's proctoring event sequence in log-time order.
func (h *SessionHandler) AttemptProctoring(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	events, err := h.proctorService.Read(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}

// AbandonAttempt godoc
// POST /api/v1/teacher/attempts/:attempt_id/abandon
// Voids an in-progress attempt without grading it.
func (h *SessionHandler) AbandonAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Abandon(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
