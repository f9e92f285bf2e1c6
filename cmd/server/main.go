package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/database"
	"github.com/examforge/examforge-backend/internal/handler"
	"github.com/examforge/examforge-backend/internal/logger"
	"github.com/examforge/examforge-backend/internal/middleware"
	"github.com/examforge/examforge-backend/internal/repository"
	"github.com/examforge/examforge-backend/internal/router"
	"github.com/examforge/examforge-backend/internal/service"
	"github.com/examforge/examforge-backend/internal/store"
	"github.com/examforge/examforge-backend/internal/validator"
	ws "github.com/examforge/examforge-backend/internal/websocket"
	"github.com/examforge/examforge-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamForge Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Redis carries snapshots, worker queues and rate limits whatever the
	// record store is.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Open Record Store ─────────────────────────────────────────────
	backend, closeBackend, err := database.OpenRecordBackend(ctx, cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer closeBackend()
	records := store.NewCSVStore(backend)

	// ─── Initialize Repositories ───────────────────────────────────────
	classRepo := repository.NewClassRepository(records)
	questionRepo := repository.NewQuestionRepository(records, log)
	studentRepo := repository.NewStudentRepository(records)
	resultRepo := repository.NewResultRepository(records)
	attemptRepo := repository.NewAttemptRepository(records)
	snapshotRepo := repository.NewSnapshotRepository(rdb, cfg.Exam.SnapshotTTL)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	hub := ws.NewHub(log)
	publisher := service.NewAttemptPublisher(rdb, log)

	hooks := service.SessionHooks{Notifier: hub, Observer: publisher}
	var mailService *service.MailService
	if cfg.MailEnabled() {
		mailService, err = service.NewMailService(cfg, rdb, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure mail")
		}
		hooks.Mailer = mailService
	} else {
		log.Warn().Msg("RESEND_API_KEY or MAIL_FROM not set, result e-mails disabled")
	}

	sessionService := service.NewExamSessionService(
		classRepo, questionRepo, studentRepo, resultRepo, snapshotRepo,
		authService, hooks, cfg.Exam, log,
	)
	classService := service.NewClassService(classRepo, questionRepo, studentRepo, attemptRepo)
	resultService := service.NewResultService(resultRepo, classRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewExamSessionHandler(sessionService, log),
		Result:  handler.NewResultHandler(resultService, log),
		Class:   handler.NewClassHandler(classService, log),
		WS:      handler.NewWSHandler(hub, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(rdb, sessionService, log),
	}
	guards := router.Guards{
		Auth:          authService,
		Sessions:      sessionService,
		VerifyLimiter: middleware.NewRateLimiter(rdb, "verify", cfg.VerifyLimit, time.Minute, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	go publisher.Run(workerCtx)
	go worker.NewAttemptWorker(attemptRepo, rdb, log).Start(workerCtx)
	if mailService != nil {
		go worker.NewResultMailWorker(resultRepo, mailService, rdb, log).Start(workerCtx)
	}

	if err := sessionService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start session janitor")
	}

	if cfg.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set, admin API is disabled")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(guards, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Snapshot live sessions so they can be resumed after restart.
	sessionService.Shutdown(shutdownCtx)

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
