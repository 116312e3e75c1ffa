package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/handler"
	"github.com/stemsi/scholarship-exam/internal/middleware"
	"github.com/stemsi/scholarship-exam/internal/response"
	"github.com/stemsi/scholarship-exam/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Exam         *handler.ExamHandler
	Registration *handler.RegistrationHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// loginLimiter may be nil, in which case auth routes are not rate limited.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the request logger and every envelope can use it.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/master-data", middleware.CacheControl(300), handlers.Registration.MasterData)
		publicAPI.GET("/check-user", middleware.NoStore(), handlers.Registration.CheckUser)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		limited := auth.Group("")
		if loginLimiter != nil {
			limited.Use(loginLimiter.Middleware())
		}
		limited.POST("/login", handlers.Auth.Login)
		limited.POST("/verify-otp", handlers.Auth.VerifyOTP)
		limited.POST("/register", handlers.Registration.Register)

		// Authenticated profile routes
		authed := auth.Group("")
		authed.Use(
			middleware.RequireStudentJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
		)
		authed.GET("/me", handlers.Auth.Me)
		authed.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/exam", handlers.Exam.StartExam)
		studentAPI.POST("/exam", handlers.Exam.StartExam)
		studentAPI.POST("/exam/answers", handlers.Exam.SaveAnswer)
		studentAPI.POST("/exam/submit", handlers.Exam.SubmitExam)
	}

	return router
}
