package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secretkeeper/internal/auth"
	"github.com/secretkeeper/internal/config"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
	"github.com/secretkeeper/internal/service"
	"github.com/secretkeeper/internal/session"
)

// Server wraps the HTTP server
type Server struct {
	config    *config.Config
	database  *db.DB
	engine    *gin.Engine
	logger    *slog.Logger
	now       func() time.Time
	accounts  domain.AccountService
	local     domain.LocalAuthenticator
	federated domain.FederatedAuthenticator
	provider  domain.IdentityProvider // nil when Google sign-in is not configured
	sessions  *session.Manager
}

// Option customizes a Server
type Option func(*serverOptions)

type serverOptions struct {
	logger   *slog.Logger
	now      func() time.Time
	provider domain.IdentityProvider
	hasher   domain.PasswordHasher
}

// WithLogger sets the logger used by handlers and middleware
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

// WithClock replaces time.Now for session issue and expiry
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.now = now }
}

// WithIdentityProvider replaces the Google provider built from config
func WithIdentityProvider(provider domain.IdentityProvider) Option {
	return func(o *serverOptions) { o.provider = provider }
}

// WithPasswordHasher replaces the default bcrypt hasher
func WithPasswordHasher(hasher domain.PasswordHasher) Option {
	return func(o *serverOptions) { o.hasher = hasher }
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, database *db.DB, opts ...Option) *Server {
	o := serverOptions{
		logger: slog.Default(),
		now:    time.Now,
		hasher: auth.NewHasher(constants.PasswordHashCost),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil && cfg.GoogleEnabled() {
		o.provider = auth.NewGoogleProvider(cfg.Google)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		config:    cfg,
		database:  database,
		engine:    engine,
		logger:    o.logger,
		now:       o.now,
		accounts:  service.NewAccountService(database, o.hasher, o.logger),
		local:     auth.NewLocalStrategy(database, o.hasher),
		federated: auth.NewFederatedStrategy(database, o.logger),
		provider:  o.provider,
		sessions: session.NewManager(database, database, session.Options{
			Secret: cfg.Session.Secret,
			TTL:    constants.SessionTTL,
			Issuer: constants.SessionIssuer,
			Now:    o.now,
		}, o.logger),
	}

	// Middleware - order matters
	engine.Use(securityHeadersMiddleware())
	engine.Use(cacheControlMiddleware())
	engine.Use(server.loggerMiddleware())
	engine.Use(formBodyLimitMiddleware(constants.MaxFormBodySize))
	engine.Use(server.sessionMiddleware())

	engine.SetHTMLTemplate(pageTemplates)
	server.setupRoutes()

	return server
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the session manager, for the background purge
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.ServerAddress
	if addr == "" {
		addr = ":3000"
	}

	// Configure server with timeouts
	server := &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", addr, "google_enabled", s.provider != nil)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func staticDirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
