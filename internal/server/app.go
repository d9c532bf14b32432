package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/services"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds how long in-flight requests may run after shutdown starts.
const ShutdownTimeout = 10 * time.Second

//go:embed public
var publicFiles embed.FS

// Server is the tophits web service: the API, the metrics endpoint and the embedded frontend.
type Server struct {
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// Opts contains the dependencies of a [Server].
type Opts struct {
	Config  shared.ServerConfig
	Catalog services.Catalog
	Engine  tasks.Engine
	Metrics *metrics.Manager
	Logger  *log.Logger
}

// New builds the router and HTTP server.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}

	router := NewBasicRouter()
	router.Use(
		RequestID(),
		Recover(opts.Logger),
		Logger(opts.Logger),
		Metrics(opts.Metrics),
		CORS(opts.Config.AllowedOrigins),
	)

	NewAPI(opts.Catalog, opts.Engine, opts.Logger).Register(router)
	router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Metrics.Registry(), promhttp.HandlerOpts{}))
	router.Handle(http.MethodGet, "/", Static())

	return &Server{
		router: router,
		logger: opts.Logger,
		http: &http.Server{
			Addr:              opts.Config.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Static serves the embedded browser frontend.
func Static() http.Handler {
	sub, err := fs.Sub(publicFiles, "public")
	if err != nil {
		panic(fmt.Sprintf("embedded frontend missing: %v", err))
	}
	return http.FileServerFS(sub)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully within [ShutdownTimeout].
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		serverErrors <- s.http.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
