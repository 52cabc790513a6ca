package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marlow/casefile/internal/api"
	"github.com/marlow/casefile/internal/config"
	"github.com/marlow/casefile/internal/db"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/repository/sqlite"
	"github.com/marlow/casefile/internal/services"
	"github.com/marlow/casefile/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Casefile Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("max_attempts=%d", cfg.MaxAttempts)
	log.Debug("migration_worker_count=%d", cfg.MigrationWorkers)
	log.Debug("migration_queue_size=%d", cfg.MigrationQueue)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	if cfg.Seed {
		if err := db.Seed(context.Background(), database); err != nil {
			log.Error("failed to seed database: %v", err)
			os.Exit(1)
		}
	}

	// Initialize repositories
	puzzleRepo := sqlite.NewPuzzleRepository(database.DB)
	sessionRepo := sqlite.NewSessionRepository(database.DB)
	attemptRepo := sqlite.NewAttemptRepository(database.DB)
	completionRepo := sqlite.NewCompletionRepository(database.DB)
	rankRepo := sqlite.NewRankRepository(database.DB)
	migrationRepo := sqlite.NewIdentityMigrationRepository(database.DB)
	statsRepo := sqlite.NewPuzzleStatsRepository(database.DB)

	// Initialize services
	statsService := services.NewStatsService(statsRepo, puzzleRepo)
	rankService := services.NewRankService(rankRepo, completionRepo)
	gameService := services.NewGameService(puzzleRepo, attemptRepo, completionRepo, statsService, rankService, cfg.MaxAttempts)
	identityService := services.NewIdentityService(sessionRepo, migrationRepo, rankService)

	// Best-effort identity migrations run off the login path.
	migrationPool := worker.NewPool(cfg.MigrationWorkers, cfg.MigrationQueue)

	srv := &api.Server{
		GameService:       gameService,
		RankService:       rankService,
		IdentityService:   identityService,
		StatsService:      statsService,
		MigrationPool:     migrationPool,
		SessionCookieName: cfg.SessionCookieName,
		SessionTTL:        time.Duration(cfg.SessionTTLDays) * 24 * time.Hour,
		AccountHeader:     cfg.AccountHeader,
	}

	ctx, cancel := context.WithCancel(context.Background())
	migrationPool.Start(ctx)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping worker pool")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping migration pool")
	migrationPool.Stop()

	log.Info("===========================================")
	log.Info("Casefile Server Stopped")
	log.Info("===========================================")
}
