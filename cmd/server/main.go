package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RobertFent/teambase/internal/activity"
	"github.com/RobertFent/teambase/internal/api"
	"github.com/RobertFent/teambase/internal/database"
	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/reconcile"
	"github.com/RobertFent/teambase/internal/store"
	"github.com/RobertFent/teambase/internal/tasks"
	"github.com/RobertFent/teambase/internal/team"
	"github.com/RobertFent/teambase/pkg/config"
	"github.com/RobertFent/teambase/pkg/queue"
	"github.com/RobertFent/teambase/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting teambase server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	// Asynq client for deprovision retries
	var asynqClient *asynq.Client
	var deprovisionQueue team.DeprovisionEnqueuer
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		deprovisionQueue = tasks.NewClient(asynqClient)
	}

	// Initialize services
	st := store.New(db)
	recorder := activity.NewRecorder(st)

	tokens := identity.NewTokenService(cfg.Auth.Secret, cfg.Auth.Expiry())
	resolver := identity.NewResolver(st, tokens)

	verifier, err := identity.NewWebhookVerifier(cfg.Identity.WebhookSecret)
	if err != nil {
		logger.Error("failed to create webhook verifier", "error", err)
		os.Exit(1)
	}

	provider := identity.NewAPIClient(cfg.Identity.APIBase, cfg.Identity.SecretKey, cfg.Identity.RedirectURL())
	reconciler := reconcile.NewReconciler(st, recorder, logger)
	teamService := team.NewService(st, provider, recorder, deprovisionQueue, logger)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:              db,
		Redis:           redisClient,
		Logger:          logger,
		Resolver:        resolver,
		WebhookVerifier: verifier,
		Reconciler:      reconciler,
		TeamService:     teamService,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimitReqs:   cfg.RateLimit.Requests,
		RateLimitSecs:   cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
