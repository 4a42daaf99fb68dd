package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/secretkeeper/internal/config"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/http"
	"github.com/secretkeeper/internal/logger"
	"github.com/secretkeeper/internal/session"
)

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.InitLogger(cfg.Environment)
	if envErr != nil {
		appLogger.Debug("no env file loaded", "path", envFile, "error", envErr)
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server exited", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server stopped")
}

func run(cfg *config.Config, appLogger *slog.Logger) error {
	appLogger.Info("configuration loaded",
		"environment", cfg.Environment,
		"server_address", cfg.ServerAddress,
		"google_enabled", cfg.GoogleEnabled(),
		"secure_cookie", cfg.Session.SecureCookie,
	)

	// Initialize database
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()
	appLogger.Info("database ready", "dialect", database.Dialect())

	// Create HTTP server
	server := http.NewServer(cfg, database, http.WithLogger(appLogger))

	// Background purge of expired sessions
	if cfg.Session.PurgeSchedule != "" {
		purger, err := session.NewPurger(server.Sessions(), cfg.Session.PurgeSchedule, appLogger)
		if err != nil {
			return err
		}
		purger.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			purger.Stop(stopCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
