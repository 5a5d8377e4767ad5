// Package server exposes the framework over HTTP: conversational dispatch,
// direct tool and query execution, and inspection endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/querymesh/agent"
	"github.com/hupe1980/querymesh/dao"
	"github.com/hupe1980/querymesh/dispatch"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/service"
	"github.com/hupe1980/querymesh/tool"
)

// Dependencies are the collaborators a server serves from.
type Dependencies struct {
	Router   *agent.Router
	Agents   *agent.Registry
	Tools    *tool.Registry
	Executor *dispatch.Executor
	DAO      dao.DAO
	Service  *service.QueryService
}

// Options configures a Server.
type Options struct {
	// Logger receives request-level records. Defaults to no logging.
	Logger logging.Logger
	// RequestTimeout bounds request handling end to end.
	RequestTimeout time.Duration
	// DefaultAgent answers chat requests that name no agent. Empty means
	// the agent field is required.
	DefaultAgent string
}

// Server is the HTTP surface. It owns routing and status mapping only;
// every behavior lives behind its dependencies.
type Server struct {
	deps         Dependencies
	logger       logging.Logger
	defaultAgent string
	mux          *chi.Mux
	http         *http.Server
}

// New builds a server with its routes mounted.
func New(addr string, deps Dependencies, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		RequestTimeout: 120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{deps: deps, logger: opts.Logger, defaultAgent: opts.DefaultAgent}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(opts.RequestTimeout))

	mux.Get("/health", s.handleHealth)
	mux.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/tool", s.handleTool)
		r.Post("/query", s.handleQuery)
		r.Get("/tools", s.handleListTools)
		r.Get("/agents", s.handleListAgents)
		r.Get("/entities", s.handleListEntities)
	})
	s.mux = mux
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server.listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// within the context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
