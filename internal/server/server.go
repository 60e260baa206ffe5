package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskbot/internal/bot"
	"taskbot/internal/conversation"
	"taskbot/pkg/logging"
)

const (
	// DefaultAddr is where the server listens when nothing is configured.
	DefaultAddr = ":3978"
	// DefaultCallbackPath is the OAuth redirect path.
	DefaultCallbackPath = "/oauth/callback"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	maxActivityBytes         = 1 << 20
	shutdownTimeout          = 10 * time.Second
)

// ActivityHandler processes one inbound activity.
type ActivityHandler interface {
	Handle(ctx context.Context, act bot.Activity, messenger conversation.Messenger) error
}

// Config configures the HTTP surface.
type Config struct {
	Addr          string
	CallbackPath  string
	CallbackRate  float64
	CallbackBurst int
}

// Deps are the handlers mounted on the router. Activities and Metrics are
// optional.
type Deps struct {
	Callback   http.Handler
	Activities ActivityHandler
	Messenger  conversation.Messenger
	Metrics    http.Handler
}

// Server serves the bot's HTTP routes.
type Server struct {
	cfg     Config
	deps    Deps
	limiter *ipLimiter
	router  http.Handler
}

// New builds the router.
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newIPLimiter(cfg.CallbackRate, cfg.CallbackBurst),
	}
	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.With(s.limiter.middleware).Get(s.cfg.CallbackPath, s.deps.Callback.ServeHTTP)

	if s.deps.Activities != nil {
		r.Post("/api/messages", s.handleActivity)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	return r
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxActivityBytes)

	var act bot.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		http.Error(w, fmt.Sprintf("invalid activity: %v", err), http.StatusBadRequest)
		return
	}
	if err := act.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.deps.Activities.Handle(r.Context(), act, s.deps.Messenger); err != nil {
		logging.Error("Server", err, "Failed to handle activity %s", act.ID)
		http.Error(w, "failed to handle activity", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweep.C:
				s.limiter.sweep()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Listening on %s (callback %s)", ln.Addr(), s.cfg.CallbackPath)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	logging.Info("Server", "HTTP server stopped")
	return nil
}
