package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/auth"
	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/danilofalcao/llama-gateway/internal/server/logger"
	"github.com/danilofalcao/llama-gateway/internal/server/middleware"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	defaultTimeout = 330 * time.Second
	maxBodyBytes   = 64 << 20
)

// Dispatcher routes one validated chat request to a backend.
type Dispatcher interface {
	Route(ctx context.Context, req *backend.Request) (*backend.Result, error)
}

// ModelLister reports the models available on local storage.
type ModelLister interface {
	List() []string
}

// Options configures the server
type Options struct {
	Port           string
	Dispatcher     Dispatcher
	Models         ModelLister
	Credentials    auth.Store
	DefaultModel   string
	AllowedOrigins []string
	LogLevel       string
	LogNoColor     bool
	Timeout        time.Duration
	ExitCh         chan string
}

// Server represents the API server
type Server struct {
	ctx          context.Context
	port         string
	dispatcher   Dispatcher
	models       ModelLister
	credentials  auth.Store
	defaultModel string
	origins      []string
	timeout      time.Duration
	exitCh       chan string
	httpServer   *http.Server
}

// New creates a new server instance
func New(ctx context.Context, opts Options) (*Server, error) {
	// set up the server's logger
	lgr := logger.New(
		ctx,
		"server",
		logger.LevelFromString(opts.LogLevel),
		opts.ExitCh,
	)
	if opts.LogNoColor {
		lgr = lgr.WithoutColor()
	}
	ctx = logutils.ContextWithLogger(ctx, lgr)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if opts.Port == "" {
		return nil, fmt.Errorf("port is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	return &Server{
		ctx:          ctx,
		port:         opts.Port,
		dispatcher:   opts.Dispatcher,
		models:       opts.Models,
		credentials:  opts.Credentials,
		defaultModel: opts.DefaultModel,
		origins:      opts.AllowedOrigins,
		timeout:      timeout,
		exitCh:       opts.ExitCh,
	}, nil
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/healthz", s.handleHealth)

	return middleware.Wrap(s.ctx, mux, middleware.Params{
		Credentials:    s.credentials,
		PublicPaths:    []string{"/healthz"},
		AllowedOrigins: s.origins,
		Timeout:        s.timeout,
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	h2s := &http2.Server{}
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           h2c.NewHandler(s.Handler(), h2s),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return s.ctx },
	}

	// Enable HTTP/2 support
	if err := http2.ConfigureServer(srv, h2s); err != nil {
		return fmt.Errorf("error configuring HTTP/2: %w", err)
	}
	s.httpServer = srv

	logutils.FromContext(s.ctx).Infof(s.ctx, "Starting server on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
