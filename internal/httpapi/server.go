package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/passport"
	authmw "github.com/MrEthical07/passport/middleware"
)

// Server routes HTTP requests to an engine.
type Server struct {
	router      *chi.Mux
	engine      *passport.Engine
	logger      *slog.Logger
	metricsPath string
	metrics     http.Handler
	trustProxy  bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at path, outside the session guard.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// WithProxyHeaders takes the client address from X-Forwarded-For, X-Real-IP or
// True-Client-IP. Enable it only behind a proxy that overwrites those headers; otherwise
// the peer address is used and callers cannot choose the IP recorded on their session.
func WithProxyHeaders(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// New creates a Server with all routes registered.
func New(engine *passport.Engine, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		router: chi.NewRouter(),
		engine: engine,
		logger: logger.With("component", "httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(authmw.ClientIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics)
	}

	r.Route("/passport", func(r chi.Router) {
		r.Post("/signin", s.handleSignin)
		r.Post("/signout", s.handleSignout)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Guard(s.engine, s.reject))
			r.Get("/authorization", s.handleAuthorization)
			r.Get("/sessions", s.handleListSessions)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
		})
	})
}

// reject is the Guard failure writer.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	respondError(w, r, status, passport.Message(err))
}
