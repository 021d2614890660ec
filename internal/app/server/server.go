package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perftrack/internal/domain/audit"
	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/reports"
	"perftrack/internal/domain/suggest"
	"perftrack/internal/platform/config"
	"perftrack/internal/platform/db"
	"perftrack/internal/platform/email"
	"perftrack/internal/platform/metrics"
	audithandler "perftrack/internal/transport/http/handlers/audit"
	authhandler "perftrack/internal/transport/http/handlers/auth"
	goalshandler "perftrack/internal/transport/http/handlers/goals"
	notificationshandler "perftrack/internal/transport/http/handlers/notifications"
	reportshandler "perftrack/internal/transport/http/handlers/reports"
	usershandler "perftrack/internal/transport/http/handlers/users"
	"perftrack/internal/transport/http/api"
	"perftrack/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

// New wires the whole application. The caller owns the pool and is expected
// to close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	userStore := auth.NewStore(pool)
	goalService := goals.NewService(goals.NewStore(pool))
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	auditService := audit.New(pool)
	reportService := reports.NewService(reports.NewStore(pool), cfg.ReportExportDir)
	suggestService := suggest.New(cfg.SuggestAPIKey, cfg.SuggestEndpoint)
	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		loginLimit := max(cfg.RateLimitPerMinute/4, 1)
		authHandler := authhandler.NewHandler(userStore, auditService, cfg.JWTSecret, cfg.TokenTTL)
		r.With(middleware.LoginRateLimit(loginLimit, time.Minute)).Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.With(middleware.RequireAuth).Get("/auth/me", authHandler.HandleMe)

		usershandler.NewHandler(userStore).RegisterRoutes(r)
		goalshandler.NewHandler(goalService, notifyService, auditService, suggestService).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		reportshandler.NewHandler(reportService).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)

		if cfg.MetricsEnabled {
			r.With(middleware.RequireAuth, middleware.RequireRole(auth.RoleAdmin)).
				Get("/admin/metrics", func(w http.ResponseWriter, r *http.Request) {
					api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
				})
		}
	})

	return &App{Config: cfg, DB: pool, Router: router}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

func (a *App) Run() error {
	server := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
