package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/quiz-tournament/config"
	"github.com/Dosada05/quiz-tournament/content"
	"github.com/Dosada05/quiz-tournament/db"
	"github.com/Dosada05/quiz-tournament/handlers"
	"github.com/Dosada05/quiz-tournament/live"
	"github.com/Dosada05/quiz-tournament/notify"
	"github.com/Dosada05/quiz-tournament/repositories"
	api "github.com/Dosada05/quiz-tournament/routes"
	"github.com/Dosada05/quiz-tournament/services"
	"github.com/Dosada05/quiz-tournament/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.BackupsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("backups disabled: R2 credentials not configured")
	}

	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("live event hub started")

	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	questionRepo := repositories.NewPostgresQuestionRepository(dbConn)
	answerRepo := repositories.NewPostgresAnswerRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	stateRepo := repositories.NewPostgresTournamentStateRepository(dbConn)
	logger.Info("repositories initialized")

	provider := content.NewOpenTDBProvider(cfg.TriviaAPIURL, logger)
	notifier := notify.NewMulti(notify.NewLogNotifier(logger), notify.NewHubNotifier(wsHub))

	authService, err := services.NewAuthService(cfg.OwnerPassword)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}
	teamService := services.NewTeamService(teamRepo, playerRepo, rosterRepo)
	playerService := services.NewPlayerService(playerRepo, teamRepo, rosterRepo, answerRepo, notifier, logger)
	dbtx := services.NewSQLDB(dbConn)
	tournamentService := services.NewTournamentService(
		dbtx, teamRepo, matchRepo, standingRepo, stateRepo, notifier, wsHub, logger, cfg.MatchTiebreakSeed)
	matchService := services.NewMatchService(
		dbtx, matchRepo, questionRepo, answerRepo, teamRepo, rosterRepo, standingRepo,
		provider, notifier, wsHub, tournamentService, logger,
		cfg.QuestionsPerMatch, cfg.MatchTiebreakSeed)
	schedulerService := services.NewSchedulerService(
		matchRepo, teamRepo, rosterRepo, matchService, notifier, logger, cfg.ReminderLead)
	backupService := services.NewBackupService(
		teamRepo, matchRepo, standingRepo, stateRepo, uploader, logger)
	logger.Info("services initialized")

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		logger.Info("match scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

		for {
			select {
			case <-schedulerCtx.Done():
				logger.Info("match scheduler stopped")
				return
			case <-ticker.C:
				started, err := schedulerService.Tick(schedulerCtx, time.Now())
				if err != nil {
					logger.Error("scheduler tick failed", slog.Any("error", err))
					continue
				}
				if len(started) > 0 {
					logger.Info("scheduler started matches", slog.Int("count", len(started)))
				}
			}
		}
	}()

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	teamHandler := handlers.NewTeamHandler(teamService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	matchHandler := handlers.NewMatchHandler(matchService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	adminHandler := handlers.NewAdminHandler(playerService, backupService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		teamHandler,
		playerHandler,
		matchHandler,
		tournamentHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
