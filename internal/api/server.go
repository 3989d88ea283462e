// Package api provides HTTP handlers and the main API server logic for
// Blueprint.
//
// It exposes RESTful endpoints for creating design sessions, driving the
// nine-step conversation, and retrieving captured blueprints. The API
// integrates with the flow, genai, and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alcove-ed/blueprint/internal/flow"
	"github.com/alcove-ed/blueprint/internal/genai"
	"github.com/alcove-ed/blueprint/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server timeouts.
const (
	DefaultAddr         = ":8080"
	readHeaderTimeout   = 10 * time.Second
	writeTimeout        = 60 * time.Second
	idleTimeout         = 120 * time.Second
	shutdownGracePeriod = 15 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// SystemPrompt overrides the default coach persona prompt.
	SystemPrompt string
}

// Option defines a functional option for API server configuration.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSystemPrompt sets the coach system prompt.
func WithSystemPrompt(p string) Option {
	return func(o *Opts) { o.SystemPrompt = p }
}

// Server hosts the HTTP API around a flow engine.
type Server struct {
	engine *flow.Engine
	st     store.Store
	router chi.Router
}

// NewServer creates a Server and mounts all routes.
func NewServer(engine *flow.Engine, st store.Store) *Server {
	s := &Server{engine: engine, st: st}
	s.router = s.routes()
	return s
}

// Handler returns the mounted HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.createSessionHandler)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSessionHandler)
			r.Delete("/", s.deleteSessionHandler)
			r.Post("/submit", s.submitHandler)
			r.Post("/confirm", s.confirmHandler)
			r.Post("/refine", s.refineHandler)
			r.Post("/proceed", s.proceedHandler)
			r.Post("/goback", s.goBackHandler)
			r.Post("/suggestions", s.suggestionsHandler)
			r.Get("/context", s.contextHandler)
			r.Get("/context/stats", s.contextStatsHandler)
			r.Get("/blueprint", s.blueprintHandler)
		})
	})
	return r
}

// Run wires up the store, LLM client, and engine, then serves HTTP until the
// context is canceled. Store open failures degrade to the in-memory backend so
// the service stays reachable; session durability is lost until the backend
// recovers.
func Run(ctx context.Context, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	var opts Opts
	for _, o := range apiOpts {
		o(&opts)
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}

	st := openStore(storeOpts)
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Server.Run: store close failed", "error", err)
		}
	}()

	var genaiClient genai.ClientInterface
	if os.Getenv("OPENAI_API_KEY") != "" || hasAPIKey(genaiOpts) {
		client, err := genai.NewClient(genaiOpts...)
		if err != nil {
			slog.Warn("Server.Run: LLM client unavailable, replies use deterministic templates", "error", err)
		} else {
			genaiClient = client
		}
	} else {
		slog.Info("Server.Run: no OpenAI API key configured, replies use deterministic templates")
	}

	engineOpts := []flow.EngineOption{}
	if opts.SystemPrompt != "" {
		engineOpts = append(engineOpts, flow.WithSystemPrompt(opts.SystemPrompt))
	}
	engine := flow.NewEngine(flow.NewStoreBasedStateManager(st), genaiClient, engineOpts...)
	server := NewServer(engine, st)

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: Blueprint API listening", "addr", opts.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// openStore opens the configured backend, falling back to in-memory storage
// on failure.
func openStore(storeOpts []store.Option) store.Store {
	var opts store.Opts
	for _, o := range storeOpts {
		o(&opts)
	}

	switch {
	case store.IsPostgresDSN(opts.DSN):
		st, err := store.NewPostgresStore(storeOpts...)
		if err == nil {
			slog.Info("Server.openStore: using Postgres store")
			return st
		}
		slog.Error("Server.openStore: Postgres open failed, degrading to in-memory store", "error", err)
	case opts.DSN != "":
		st, err := store.NewSQLiteStore(storeOpts...)
		if err == nil {
			slog.Info("Server.openStore: using SQLite store", "dsn", opts.DSN)
			return st
		}
		slog.Error("Server.openStore: SQLite open failed, degrading to in-memory store", "error", err)
	}
	slog.Info("Server.openStore: using in-memory store")
	return store.NewInMemoryStore()
}

func hasAPIKey(genaiOpts []genai.Option) bool {
	var opts genai.Opts
	for _, o := range genaiOpts {
		o(&opts)
	}
	return opts.APIKey != ""
}
