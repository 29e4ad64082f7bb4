// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it decides which URL maps to which
// handler, what middleware runs where, and how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New
//	server.New creates: sqlite.DB → Stores → Services → Orchestrator → Handlers
//
// This is the "composition root" pattern; all dependencies are wired in
// one place (New/setupRoutes) rather than scattered across the codebase.
package server

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
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/config"
	"github.com/sakif/notekeeper/internal/handler"
	"github.com/sakif/notekeeper/internal/middleware"
	sqliteRepo "github.com/sakif/notekeeper/internal/repository/sqlite"
	"github.com/sakif/notekeeper/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the rate limiter's cleanup
// goroutine. Close releases both; Start calls it during graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter

	passwords *auth.PasswordService
}

// Option customises a Server before its routes are built.
type Option func(*Server)

// WithPasswordService replaces the default bcrypt cost. Tests use it with
// bcrypt.MinCost.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// New opens the database and wires every layer.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with
// the driver package.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if err := cfg.RequireSecret(); err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		limiter:   middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		passwords: auth.NewPasswordService(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the rate limiter and closes the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                   → liveness + database ping
//	POST   /api/users                 → register
//	POST   /api/users/login           → login (email or name)
//	POST   /api/users/logout          → clear cookie
//	POST   /api/users/restore         → restore archived account (rate limited)
//	GET    /api/users/me              → caller's profile            [auth]
//	PUT    /api/users/profile         → update profile              [auth]
//	DELETE /api/users/me              → archive and delete account  [auth]
//	GET    /api/todos                 → list notes                  [auth]
//	POST   /api/todos                 → create note                 [auth]
//	PUT    /api/todos/{id}            → update note                 [auth]
//	PATCH  /api/todos/{id}/complete   → toggle completed            [auth]
//	PATCH  /api/todos/{id}/important  → toggle important            [auth]
//	DELETE /api/todos/{id}            → trash and delete note       [auth]
//	GET    /auth/github/login         → only when GitHub is configured
//	GET    /auth/github/callback
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Logger → Recoverer. RealIP must run before the rate
// limiter so buckets are keyed by the client, not the proxy.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// DEPENDENCY CHAIN:
	//   s.db → Stores (repository interfaces) → services → handlers
	// Handlers never touch the database; services never touch HTTP.
	stores := s.db.Stores()
	trash := service.NewTrashBin(stores.Trash, s.logger)
	notes := service.NewNoteService(stores.Notes, stores.Users, trash, s.logger)
	authService := service.NewAuthService(stores.Users, tokens, s.passwords, s.logger)

	orchestrator, err := service.NewOrchestrator(stores, s.db, s.passwords, service.AccountOptions{
		RestorePolicy:     service.RestorePolicy(s.config.Archive.RestorePolicy),
		TemporaryPassword: s.config.Archive.TemporaryPassword,
		ExactEmailMatch:   s.config.Archive.ExactEmailMatch,
		Transactional:     s.config.Archive.Transactional,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating account orchestrator: %w", err)
	}

	session := handler.Session{TTL: tokens.TTL(), Secure: s.config.Server.SecureCookies}
	accountHandler := handler.NewAccountHandler(authService, orchestrator, session, s.logger)
	noteHandler := handler.NewNoteHandler(notes, s.logger)
	requireAuth := auth.RequireAuth(tokens)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/users", func(r chi.Router) {
		r.Post("/", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)
		r.With(s.limiter.Middleware).Post("/restore", accountHandler.HandleRestore)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", accountHandler.HandleMe)
			r.Delete("/me", accountHandler.HandleDeleteMe)
			r.Put("/profile", accountHandler.HandleUpdateProfile)
		})
	})

	s.router.Route("/api/todos", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", noteHandler.HandleList)
		r.Post("/", noteHandler.HandleCreate)
		r.Put("/{id}", noteHandler.HandleUpdate)
		r.Patch("/{id}/complete", noteHandler.HandleToggleCompleted)
		r.Patch("/{id}/important", noteHandler.HandleToggleImportant)
		r.Delete("/{id}", noteHandler.HandleDelete)
	})

	if gh := s.config.GitHub; gh.Enabled() {
		provider := auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
		githubHandler := handler.NewGitHubHandler(provider, authService, session, s.logger)
		s.router.Get("/auth/github/login", githubHandler.HandleLogin)
		s.router.Get("/auth/github/callback", githubHandler.HandleCallback)
	} else {
		s.logger.Info("GitHub login disabled (GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set)")
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (server.shutdown_timeout)
//  3. Close the rate limiter and the database
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.String("restorePolicy", s.config.Archive.RestorePolicy),
			slog.Bool("transactional", s.config.Archive.Transactional),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
