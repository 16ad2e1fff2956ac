// Package server exposes a wallet directory over HTTP. Routes live under
// /api/v1/wallet-manager and every response uses the Response envelope.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aira-payment/walletdir/internal/config"
	"github.com/aira-payment/walletdir/internal/directory"
	"github.com/aira-payment/walletdir/internal/metrics"
	"github.com/aira-payment/walletdir/internal/walletset"
)

// BasePath prefixes the wallet routes.
const BasePath = "/api/v1/wallet-manager"

// Directory is the subset of *directory.Directory the server calls.
type Directory interface {
	GetOrCreate(email string) (walletset.WalletSet, error)
	Lookup(email string) (walletset.WalletSet, error)
	ListAll() ([]walletset.WalletSet, error)
	Delete(email string) (bool, error)
	Stats() (directory.Stats, error)
}

// Logger is the logging surface the server needs. *config.Logger
// satisfies it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Options configure a Server. Zero values fall back to defaults.
type Options struct {
	Config  config.ServerConfig
	Logger  Logger
	Metrics *metrics.Metrics
	Version string
}

// Server is the HTTP front of a Directory.
type Server struct {
	dir     Directory
	cfg     config.ServerConfig
	logger  Logger
	metrics *metrics.Metrics
	limiter *RateLimiter
	version string
	started time.Time
	now     func() time.Time

	handler    http.Handler
	httpServer *http.Server
}

// New builds the server and its routes. It does not listen until Start.
func New(dir Directory, opts Options) *Server {
	cfg := opts.Config
	if cfg.ListenAddr == "" {
		cfg = config.Defaults().Server
	}

	s := &Server{
		dir:     dir,
		cfg:     cfg,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		limiter: NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		version: opts.Version,
		now:     time.Now,
	}
	if s.logger == nil {
		s.logger = config.NullLogger()
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.version == "" {
		s.version = "dev"
	}
	s.started = s.now()

	s.handler = s.buildHandler()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout(),
		ReadHeaderTimeout: cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       2 * cfg.ReadTimeout(),
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.ListenAddr
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+BasePath+"/wallet", s.handleGetOrCreate)
	mux.HandleFunc("GET "+BasePath+"/wallet/{email}", s.handleLookup)
	mux.HandleFunc("DELETE "+BasePath+"/wallet/{email}", s.handleDelete)
	mux.HandleFunc("GET "+BasePath+"/wallets", s.handleList)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/docs", s.handleDocs)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Method-less patterns catch the other verbs on known paths.
	for _, path := range []string{
		BasePath + "/wallet",
		BasePath + "/wallet/{email}",
		BasePath + "/wallets",
		"/health",
		"/api/v1/docs",
		"/metrics",
	} {
		mux.HandleFunc(path, s.handleMethodNotAllowed)
	}
	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = withBodyLimit(s.cfg.MaxBodyBytes, h)
	h = s.withRateLimit(h)
	h = newCORS(s.cfg.CORS.AllowedOrigins).Handler(h)
	h = s.withRecovery(h)
	h = s.withLogging(h)
	h = withRequestID(h)
	return h
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("walletdir API listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down walletdir API")
	return s.httpServer.Shutdown(ctx)
}
