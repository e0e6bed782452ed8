// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"login-portal/internal/api/handler"
	custommw "login-portal/internal/api/middleware"
	"login-portal/internal/config"
	"login-portal/internal/domain/auth"
	"login-portal/internal/identity"
	"login-portal/internal/logging"
	"login-portal/internal/notify"
	"login-portal/internal/repository"
	"login-portal/internal/storage"
)

type Server struct {
	cfg         *config.Config
	router      *chi.Mux
	logger      logging.Logger
	authService *auth.AuthService
	issuer      *identity.Issuer
	ready       *readiness
	closers     []func()

	auth  *handler.AuthHandler
	ws    *handler.WebSocketHandler
	pages *handler.Pages
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func (s *Server) initStorage() auth.StorageProvider {
	if s.cfg.Storage.Backend == "redis" {
		client := initRedis(s.cfg)
		s.closers = append(s.closers, func() { _ = client.Close() })
		return storage.NewRedisStorage(client, s.cfg.Storage.TTL)
	}
	return storage.NewMemoryStorage()
}

func (s *Server) initVerifier(ctx context.Context) (auth.CredentialVerifier, error) {
	var verifier auth.CredentialVerifier
	switch s.cfg.Auth.Verifier {
	case "postgres":
		pool, err := pgxpool.New(ctx, s.cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		users := repository.NewUserRepository(pool)
		if err := users.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		verifier = auth.NewPasswordVerifier(users)
	default:
		verifier = auth.NewStaticVerifier(s.cfg.Auth.Username, s.cfg.Auth.Password)
	}

	if s.cfg.Auth.Delay > 0 {
		verifier = auth.NewDelayedVerifier(verifier, s.cfg.Auth.Delay)
	}
	return verifier, nil
}

// New wires every dependency named by cfg. Connections opened here are
// released by Close, or by Start when it returns.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
		issuer: identity.NewIssuer([]byte(cfg.Identity.Secret), cfg.Identity.TTL),
		ready:  &readiness{},
	}

	store := s.initStorage()
	verifier, err := s.initVerifier(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	pages, err := handler.NewPages(logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	hub := notify.NewHub()
	validate := validator.New()
	formValidator := auth.NewValidator(validate)
	s.authService = auth.NewAuthService(store, verifier, formValidator, hub, logger)

	s.pages = pages
	s.auth = handler.NewAuthHandler(s.authService, pages)
	s.ws = handler.NewWebSocketHandler(s.authService, hub, logger)

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
	}

	go func() {
		if err := s.WaitReady(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(ctx, "session storage never became ready", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases backend connections.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !s.ready.Ready() {
		status = http.StatusServiceUnavailable
	}
	handler.WriteJSON(w, r, map[string]bool{"ready": s.ready.Ready()}, status)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.issuer.Middleware)

		r.Get("/login", s.auth.LoginPage)
		r.Post("/login", s.auth.LoginSubmit)
		r.Post("/logout", s.auth.Logout)
		r.Get("/ws/session", s.ws.HandleConnection)

		r.Route("/api", func(r chi.Router) {
			r.Post("/login", s.auth.APILogin)
			r.Post("/logout", s.auth.APILogout)
			r.Get("/session", s.auth.Session)
			r.Post("/validate", s.auth.Validate)
		})

		r.Group(func(r chi.Router) {
			r.Use(custommw.Guard(s.authService, s.ready, http.HandlerFunc(s.pages.Loading)))
			r.Get(auth.HomePath, s.auth.Home)
		})
	})
}
