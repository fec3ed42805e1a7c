package api

import (
	"log/slog"

	"github.com/RobertFent/teambase/internal/api/handlers"
	"github.com/RobertFent/teambase/internal/api/middleware"
	"github.com/RobertFent/teambase/internal/identity"
	"github.com/RobertFent/teambase/internal/reconcile"
	"github.com/RobertFent/teambase/internal/team"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB              *gorm.DB
	Redis           *redis.Client
	Logger          *slog.Logger
	Resolver        *identity.Resolver
	WebhookVerifier *identity.WebhookVerifier
	Reconciler      *reconcile.Reconciler
	TeamService     *team.Service
	AllowedOrigins  []string
	RateLimitReqs   int
	RateLimitSecs   int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	webhookHandler := handlers.NewWebhookHandler(cfg.WebhookVerifier, cfg.Reconciler, cfg.Logger)
	accountHandler := handlers.NewAccountHandler(cfg.TeamService)
	teamHandler := handlers.NewTeamHandler(cfg.TeamService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Provider webhook path: authenticated by signature, not by session.
	r.Post("/api/webhooks/identity", webhookHandler.HandleIdentityEvent)

	// Interactive paths. Form posts here are cookie-authenticated, so the
	// group carries CSRF protection alongside session resolution.
	csrfStore := middleware.NewCSRFStore()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Resolver))
			r.Use(middleware.CSRF(csrfStore))

			r.Get("/me", accountHandler.Me)
			r.Get("/activity", accountHandler.Activity)
			r.Post("/account", accountHandler.UpdateAccount)

			r.Route("/team", func(r chi.Router) {
				r.Get("/", teamHandler.Get)
				r.Post("/invite", teamHandler.Invite)
				r.Post("/remove", teamHandler.Remove)
			})
		})
	})

	return &Router{r}
}
