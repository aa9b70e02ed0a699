// package server contains middleware & handlers for the mood check-in web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
	"golang.org/x/sync/errgroup"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the check-in service.
// Implementations handle specific endpoints (check-ins, history).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Opts holds the dependencies of a [Server].
type Opts struct {
	Config   shared.ServerConfig
	Gate     *gate.Gate
	Registry *Registry
	History  *tasks.HistoryEngine
	Entries  EntryDeleter
	Location *time.Location // default viewer zone
	Logger   *log.Logger
}

// Server is the check-in HTTP service.
type Server struct {
	cfg      shared.ServerConfig
	router   *BasicRouter
	registry *Registry
	logger   *log.Logger
}

// NewServer wires routes and middleware.
func NewServer(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(opts.Gate.Clock(), 0, opts.Logger)
	}

	r := NewBasicRouter()
	r.Use(Recover(opts.Logger), RequestLogger(opts.Logger))

	r.Handle(http.MethodGet, "/health", http.HandlerFunc(Health))
	r.Handle(http.MethodGet, "/moods/options", http.HandlerFunc(MoodOptions))

	var limiter *UserLimiter
	if opts.Config.RateLimit > 0 {
		limiter = NewUserLimiter(opts.Config.RateLimit, opts.Config.RateBurst)
	}
	r.Use(RequireUser, RateLimit(limiter))

	r.Handler(NewCheckinHandler(opts.Gate, opts.Registry, opts.Location, opts.Logger))
	r.Handler(NewMoodsHandler(opts.History, opts.Entries, opts.Location))

	return &Server{
		cfg:      opts.Config,
		router:   r,
		registry: opts.Registry,
		logger:   opts.Logger,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the activation registry.
func (s *Server) Registry() *Registry { return s.registry }

// Run serves on the configured address until ctx ends, then shuts down gracefully
// and disposes every pending activation.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		s.registry.DisposeAll()
		return err
	})

	return g.Wait()
}
