package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/tasks"
	"github.com/RobertFent/teambase/pkg/config"
	"github.com/RobertFent/teambase/pkg/queue"
	"github.com/RobertFent/teambase/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting teambase worker")

	provider := identity.NewAPIClient(cfg.Identity.APIBase, cfg.Identity.SecretKey, cfg.Identity.RedirectURL())

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Register handlers
	handler := tasks.NewHandler(provider, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
	}()

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}
