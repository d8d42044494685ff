package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/middleware"
	"github.com/thiexam/thiexam-backend/internal/model"
	"github.com/thiexam/thiexam-backend/internal/service"
	ws "github.com/thiexam/thiexam-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running attempt over WebSocket: answer saves, flags,
// proctoring events, and final submit, without per-request HTTP overhead.
type WSHandler struct {
	attemptService *service.AttemptService
	answerService  *service.AnswerService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attemptService *service.AttemptService,
	answerService *service.AnswerService,
	proctorService *service.ProctorService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		answerService:  answerService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	// Verify ownership and liveness before upgrading.
	if _, _, err := h.attemptService.GuardInProgress(c.Request.Context(), claims.UserID, attemptID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "attempt is not in progress"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID
	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, studentID, attemptID, &msg)
		case ws.ActionFlag:
			h.handleFlag(conn, studentID, attemptID, &msg)
		case ws.ActionProctor:
			h.handleProctor(conn, studentID, attemptID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, studentID, attemptID)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, studentID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id")
		return
	}

	req := model.RecordAnswerRequest{EssayAnswer: msg.EssayAnswer}
	if msg.SelectedOptionID != nil {
		optionID, err := uuid.Parse(*msg.SelectedOptionID)
		if err != nil {
			ws.WriteError(conn, "invalid selected_option_id")
			return
		}
		req.SelectedOptionID = &optionID
	}

	if _, err := h.answerService.Record(context.Background(), studentID, attemptID, questionID, &req); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *WSHandler) handleFlag(conn *websocket.Conn, studentID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id")
		return
	}

	if err := h.answerService.Flag(context.Background(), studentID, attemptID, questionID, msg.Flagged); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.FlaggedResponse{Event: ws.EventFlagged, QuestionID: msg.QuestionID, Flagged: msg.Flagged})
}

func (h *WSHandler) handleProctor(conn *websocket.Conn, studentID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	if msg.EventType == "" {
		ws.WriteError(conn, "event_type is required")
		return
	}

	req := model.ProctorEventRequest{EventType: msg.EventType, Details: msg.Details}
	if err := h.proctorService.Append(context.Background(), studentID, attemptID, &req); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.RecordedResponse{Event: ws.EventRecorded})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID) {
	attempt, err := h.attemptService.Submit(context.Background(), studentID, attemptID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit over WebSocket failed")
		ws.WriteError(conn, err.Error())
		return
	}

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:      ws.EventSubmitted,
		Status:     attempt.Status,
		TotalScore: attempt.TotalScore,
		Passed:     attempt.Passed,
	})
	wsLog.Info().Msg("Attempt submitted over WebSocket")
}
