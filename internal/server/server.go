// Package server is the composition root: it opens the database, builds the
// services and handlers, mounts the routes and runs the HTTP server until a
// shutdown signal arrives.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/wiki/internal/auth"
	"github.com/sakif/wiki/internal/config"
	"github.com/sakif/wiki/internal/handler"
	"github.com/sakif/wiki/internal/middleware"
	"github.com/sakif/wiki/internal/repository/sqldb"
	"github.com/sakif/wiki/internal/service"
	"github.com/sakif/wiki/internal/telemetry"
)

// Server owns the router and every long-lived resource behind it. The
// database pool and tracer provider are released by Start on shutdown, or by
// Close when the server is never started.
type Server struct {
	router    *chi.Mux
	config    *config.Config
	logger    *slog.Logger
	db        *sqldb.DB
	telemetry *telemetry.Provider
}

// New wires the whole application:
//
//	sqldb.DB → ArticleService / AuthService → handlers → routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tel, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}

	db, err := sqldb.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		tel.Shutdown(context.Background())
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		telemetry: tel,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Router exposes the mounted routes, for tests and route documentation.
func (s *Server) Router() chi.Router {
	return s.router
}

// setupRoutes mounts:
//
//	GET    /healthz
//	POST   /auth/signup | /auth/signin | /auth/logout
//	GET    /auth/github/login | /auth/github/callback
//	GET    /api/articles/latest | /search | /with-authors | /{id}
//	GET    /api/stats
//	GET    /api/users/{id}/articles
//	POST   /api/articles          (signed in)
//	PUT    /api/articles/{id}     (signed in, author only)
//	DELETE /api/articles/{id}     (signed in, author only)
//	GET    /api/me                (signed in)
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	} else {
		s.logger.Info("GitHub login disabled: GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set")
	}

	articleService := service.NewArticleService(s.db, s.db, s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	articleHandler := handler.NewArticleHandler(articleService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.config.Auth.CookieSecure, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(otelhttp.NewMiddleware("wiki",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.HandleHealth(s.db))

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/signin", authHandler.HandleSignIn)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/articles/latest", articleHandler.HandleLatest)
		r.Get("/articles/search", articleHandler.HandleSearch)
		r.Get("/articles/with-authors", articleHandler.HandleWithAuthors)
		r.Get("/articles/{id}", articleHandler.HandleGet)
		r.Get("/stats", articleHandler.HandleStats)
		r.Get("/users/{id}/articles", articleHandler.HandleByAuthor)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Post("/articles", articleHandler.HandleCreate)
			r.Put("/articles/{id}", articleHandler.HandleUpdate)
			r.Delete("/articles/{id}", articleHandler.HandleDelete)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to the configured shutdown timeout and releases the database and tracer.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("address", s.config.Address),
			slog.String("env", s.config.Env),
			slog.String("db_driver", s.db.Driver()),
			slog.Bool("tracing", s.telemetry.Enabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the database pool and flushes pending spans.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	return errors.Join(
		s.db.Close(),
		s.telemetry.Shutdown(ctx),
	)
}
