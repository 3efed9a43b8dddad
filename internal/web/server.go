// Package web serves widget instances to browsers. Each page view gets its
// own panel state, keyed by a random id, and tab clicks are posted back to
// the server together with the current media query result.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/logging"
)

// LoadFunc fetches the widget files highlighted as HTML.
type LoadFunc func(ctx context.Context) (*embed.LoadReport, error)

// Config holds server configuration.
type Config struct {
	Addr       string
	AllowAll   bool // allow all CORS origins
	Theme      string
	StartIndex int
	Breakpoint embed.Breakpoint
	Height     embed.Length
	Width      embed.Length // zero means no cap
	Ratio      embed.Ratio
	CSP        string // Content-Security-Policy of the preview page
	Loading    string // iframe loading attribute
	Title      string
	// MaxInstances bounds the number of live widget states. Zero means 256.
	MaxInstances int
}

// Server hosts widget instances over HTTP.
type Server struct {
	cfg        Config
	load       LoadFunc
	logger     *slog.Logger
	instances  *registry
	router     chi.Router
	httpServer *http.Server
}

// New creates a server that loads a fresh report for every new instance.
func New(cfg Config, load LoadFunc, logger *slog.Logger) *Server {
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 256
	}
	if cfg.Title == "" {
		cfg.Title = "webcode"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		cfg:       cfg,
		load:      load,
		logger:    logger,
		instances: newRegistry(cfg.MaxInstances),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"instances": s.instances.len(),
		})
	})

	r.Get("/", s.bootstrapHandler)
	r.Get("/w/new", s.newInstanceHandler)
	r.Route("/w/{id}", func(r chi.Router) {
		r.Get("/", s.widgetHandler)
		r.Delete("/", s.deleteHandler)
		r.Post("/click", s.clickHandler)
		r.Get("/preview", s.previewHandler)
		r.Get("/files/*", s.fileHandler)
		r.Get("/state", s.stateHandler)
	})
	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("webcode server listening", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
