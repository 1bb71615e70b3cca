package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"pyquest/auth"
	"pyquest/infrastructure/observability"
	"pyquest/ratelimit"
)

// Rate limit groups
const (
	limitGroupRewards = "rewards"
	limitGroupQuests  = "quests"
	limitGroupBadges  = "badges"
	limitGroupLedger  = "ledger"
)

// RouterOptions configures the middleware around the handlers
type RouterOptions struct {
	Admins         auth.AdminEmailChecker
	Limiter        *ratelimit.Limiter
	Metrics        *observability.MetricsProvider
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New(nil, 0)
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderUserID, HeaderUserRole, HeaderUserEmail},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(identity(opts.Admins))

		r.With(
			requireCapability(auth.CapabilityGrantRewards),
			limiter.Middleware(limitGroupRewards, principalKeyFunc),
		).Post("/rewards", h.GrantReward)

		r.Route("/me", func(r chi.Router) {
			r.Route("/quests", func(r chi.Router) {
				r.Use(limiter.Middleware(limitGroupQuests, principalKeyFunc))
				r.Get("/", h.TodayQuests)
				r.Post("/progress", h.RecordQuestProgress)
			})

			r.Route("/badges", func(r chi.Router) {
				r.Use(limiter.Middleware(limitGroupBadges, principalKeyFunc))
				r.Get("/", h.UserBadges)
				r.Post("/evaluate", h.EvaluateBadges)
			})

			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware(limitGroupLedger, principalKeyFunc))
				r.Post("/logins", h.RecordLogin)
				r.Post("/diamonds/spend", h.SpendDiamonds)
				r.Get("/transactions", h.Transactions)
			})
		})

		r.Route("/badges", func(r chi.Router) {
			r.Use(limiter.Middleware(limitGroupBadges, principalKeyFunc))
			r.Get("/", h.BadgeCatalog)
			r.Get("/{id}", h.Badge)
		})

		r.With(requireCapability(auth.CapabilityViewLedger)).
			Get("/users/{id}/reconciliation", h.Reconciliation)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireCapability(auth.CapabilityManageBadges))
			r.Put("/badges/{id}", h.UpsertBadge)
			r.Post("/badges/cache/invalidate", h.InvalidateBadgeCache)
		})
	})

	return r
}

// Server wraps http.Server with graceful shutdown
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server listening on addr
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
