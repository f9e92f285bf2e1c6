package router

import (
	"net/http"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/handler"
	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/response"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.ExamSessionHandler
	Result  *handler.ResultHandler
	Class   *handler.ClassHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// Guards are the middlewares that depend on runtime services.
type Guards struct {
	Auth          *service.AuthService
	Sessions      *service.ExamSessionService
	VerifyLimiter *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(guards Guards, handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.RequestIDHeader, middleware.AdminKeyHeader}
	corsConfig.ExposeHeaders = []string{response.RequestIDHeader, "Content-Disposition", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 1. Public Group ───────────────────────────────────────────────
	api.GET("/classes/:class_id", middleware.CacheControl(60), handlers.Session.GetSummary)
	api.POST("/classes/:class_id/sessions",
		middleware.OptionalSessionToken(guards.Auth),
		middleware.NoStore(),
		handlers.Session.Open,
	)
	api.GET("/results/:result_id", handlers.Result.GetResult)

	// ─── 2. Session Group (token + live session) ───────────────────────
	sessions := api.Group("/sessions")
	sessions.Use(
		middleware.RequireSessionToken(guards.Auth),
		middleware.RequireLiveSession(guards.Sessions),
		middleware.NoStore(),
	)
	{
		verify := []gin.HandlerFunc{handlers.Session.Verify}
		if guards.VerifyLimiter != nil {
			verify = append([]gin.HandlerFunc{guards.VerifyLimiter.Middleware()}, verify...)
		}
		sessions.POST("/verify", verify...)
		sessions.POST("/resume", handlers.Session.Resume)
		sessions.GET("/state", handlers.Session.GetState)
		sessions.PUT("/answers", handlers.Session.SelectAnswer)
		sessions.POST("/flags/:question_id", handlers.Session.ToggleFlag)
		sessions.POST("/navigate", handlers.Session.Navigate)
		sessions.POST("/integrity-events", handlers.Session.ReportIntegrityEvent)
		sessions.POST("/submit", handlers.Session.Submit)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireSessionToken(guards.Auth),
		middleware.RequireLiveSession(guards.Sessions),
	)
	{
		ws.GET("/sessions/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (X-Admin-Key) ──────────────────────────────────
	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.RequireAdminKey(cfg.AdminAPIKey))
	{
		adminAPI.GET("/classes", handlers.Class.ListClasses)
		adminAPI.POST("/classes", handlers.Class.CreateClass)
		adminAPI.GET("/classes/:class_id", handlers.Class.GetClass)
		adminAPI.GET("/classes/:class_id/questions", handlers.Class.ListQuestions)
		adminAPI.POST("/classes/:class_id/questions", handlers.Class.AddQuestion)
		adminAPI.POST("/classes/:class_id/questions/import", handlers.Class.ImportQuestions)
		adminAPI.GET("/classes/:class_id/students", handlers.Class.ListStudents)
		adminAPI.GET("/classes/:class_id/attempts", handlers.Class.ListAttempts)
		adminAPI.GET("/classes/:class_id/results", handlers.Result.ListResults)
		adminAPI.GET("/classes/:class_id/results/export", handlers.Result.ExportResults)

		adminAPI.GET("/system/metrics", handlers.System.MetricsSSE)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
