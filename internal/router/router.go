package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openexam/session-engine/internal/config"
	"github.com/openexam/session-engine/internal/handler"
	"github.com/openexam/session-engine/internal/middleware"
	"github.com/openexam/session-engine/internal/response"
	"github.com/openexam/session-engine/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
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

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Candidate Group (JWT) ──────────────────────────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(middleware.RequireCandidateJWT(authService))
	{
		candidateAPI.POST("/exams/:exam_id/session", handlers.Session.StartSession)
		candidateAPI.GET("/exams/:exam_id/session/state", handlers.Session.GetState)
		candidateAPI.GET("/exams/:exam_id/session/question", handlers.Session.GetCurrentQuestion)
		candidateAPI.POST("/exams/:exam_id/session/goto", handlers.Session.GoToQuestion)
		candidateAPI.PUT("/exams/:exam_id/session/answer", handlers.Session.SetAnswer)
		candidateAPI.POST("/exams/:exam_id/session/mark", handlers.Session.ToggleMark)
		candidateAPI.GET("/exams/:exam_id/session/progress", handlers.Session.GetProgress)
		candidateAPI.POST("/exams/:exam_id/session/submit", handlers.Session.Submit)
		candidateAPI.GET("/exams/:exam_id/result", handlers.Session.GetResult)
	}

	// ─── 2. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/candidate/exams/:exam_id/timer", handlers.WS.TimerStream)
	}

	// ─── 3. Proctor Group (JWT) ────────────────────────────────────────
	proctorAPI := router.Group("/api/v1/proctor")
	proctorAPI.Use(middleware.RequireProctorJWT(authService))
	{
		proctorAPI.POST("/exams/:exam_id/candidates/:user_id/submit", handlers.Session.ForceSubmit)
	}

	return router
}
