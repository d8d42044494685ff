package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thiexam/thiexam-backend/internal/response"
	"github.com/thiexam/thiexam-backend/internal/service"
)

// failFromService maps service-layer sentinel errors to the response envelope.
// Anything unrecognized is an internal error; the caller logs it.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccessCodeNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAccessCodeNotFound)
	case errors.Is(err, service.ErrSessionInactive):
		response.Fail(c, http.StatusConflict, response.ErrSessionInactive)
	case errors.Is(err, service.ErrSessionWindowClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionWindowClosed)
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotAttemptOwner),
		errors.Is(err, service.ErrNotSessionOwner),
		errors.Is(err, service.ErrNotExamOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAttemptNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotInProgress)
	case errors.Is(err, service.ErrQuestionNotInExam):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInExam)
	case errors.Is(err, service.ErrAnswerTypeMismatch),
		errors.Is(err, service.ErrOptionNotInQuestion),
		errors.Is(err, service.ErrBadAnswerKey):
		response.Fail(c, http.StatusBadRequest, response.ErrAnswerTypeMismatch)
	case errors.Is(err, service.ErrExamLocked):
		response.Fail(c, http.StatusConflict, response.ErrExamLocked)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrScoringIncomplete):
		response.Fail(c, http.StatusInternalServerError, response.ErrScoringIncomplete)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
