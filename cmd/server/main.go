package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/database"
	"github.com/stemsi/scholarship-exam/internal/handler"
	"github.com/stemsi/scholarship-exam/internal/logger"
	"github.com/stemsi/scholarship-exam/internal/middleware"
	"github.com/stemsi/scholarship-exam/internal/repository"
	"github.com/stemsi/scholarship-exam/internal/router"
	"github.com/stemsi/scholarship-exam/internal/service"
	"github.com/stemsi/scholarship-exam/internal/sms"
	"github.com/stemsi/scholarship-exam/internal/validator"
	"github.com/stemsi/scholarship-exam/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("exam_size", cfg.Exam.Size).
		Dur("otp_ttl", cfg.OTP.TTL).
		Msg("Starting scholarship exam backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	masterRepo := repository.NewMasterRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	otpRepo := repository.NewOTPRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	sessionRepo := repository.NewSessionRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	notifier := sms.NewQueueNotifier(rdb, log)
	otpService := service.NewOTPService(otpRepo, notifier, cfg.OTP, log)
	authService := service.NewAuthService(cfg, studentRepo, otpService, sessionRepo, log)
	examService := service.NewExamSessionService(attemptRepo, answerRepo, questionRepo, nil, cfg.Exam, log)
	answerService := service.NewAnswerService(attemptRepo, answerRepo)
	registrationService := service.NewRegistrationService(studentRepo, masterRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		Exam:         handler.NewExamHandler(examService, answerService, log),
		Registration: handler.NewRegistrationHandler(registrationService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	smsWorker := worker.NewSMSWorker(rdb, sms.NewGateway(cfg.SMS, log), log)
	purgeWorker := worker.NewOTPPurgeWorker(otpService, cfg.OTPPurgeInterval, log)

	workers.Add(2)
	go func() { defer workers.Done(); smsWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); purgeWorker.Start(workerCtx) }()

	// ─── Setup Router ──────────────────────────────────────────────────
	var loginLimiter *middleware.RateLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(rdb, "login", cfg.LoginRateLimit, time.Minute, log)
	}
	r := router.SetupRouter(authService, handlers, loginLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the SMS outbox to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
