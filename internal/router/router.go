package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/thiexam/thiexam-backend/internal/config"
	"github.com/thiexam/thiexam-backend/internal/handler"
	"github.com/thiexam/thiexam-backend/internal/middleware"
	"github.com/thiexam/thiexam-backend/internal/response"
	"github.com/thiexam/thiexam-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Exam        *handler.ExamHandler
	Session     *handler.SessionHandler
	StudentExam *handler.StudentExamHandler
	Monitor     *handler.MonitorHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for endpoints reachable without a token (30/min per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	// Authenticated profile routes, outside the rate limit.
	authed := router.Group("/api/v1/auth")
	{
		authed.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
		authed.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.Me)
		authed.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/sessions/enter", handlers.StudentExam.EnterSession)
		studentAPI.GET("/attempts/:attempt_id/paper", handlers.StudentExam.GetPaper)
		studentAPI.GET("/attempts/:attempt_id/state", handlers.StudentExam.GetState)
		studentAPI.PUT("/attempts/:attempt_id/answers/:question_id", handlers.StudentExam.RecordAnswer)
		studentAPI.PUT("/attempts/:attempt_id/answers/:question_id/flag", handlers.StudentExam.FlagAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.StudentExam.SubmitAttempt)
		studentAPI.POST("/attempts/:attempt_id/proctoring", handlers.StudentExam.ReportProctorEvent)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/exams", handlers.Exam.CreateExam)
		teacherAPI.GET("/exams", handlers.Exam.ListExams)
		teacherAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		teacherAPI.GET("/exams/:exam_id/questions", handlers.Exam.ListQuestions)
		teacherAPI.PUT("/exams/:exam_id/questions", handlers.Exam.ReplaceQuestions)
		teacherAPI.GET("/exams/:exam_id/sessions", handlers.Session.ListSessions)

		teacherAPI.POST("/sessions", handlers.Session.CreateSession)
		teacherAPI.PATCH("/sessions/:session_id/active", handlers.Session.SetSessionActive)
		teacherAPI.GET("/sessions/:session_id/results", handlers.Session.SessionResults)
		teacherAPI.GET("/sessions/:session_id/monitor", handlers.Monitor.MonitorSessionSSE)

		teacherAPI.GET("/attempts/:attempt_id", handlers.Session.AttemptDetail)
		teacherAPI.GET("/attempts/:attempt_id/proctoring", handlers.Session.AttemptProctoring)
		teacherAPI.POST("/attempts/:attempt_id/abandon", handlers.Session.AbandonAttempt)
	}

	return router
}
