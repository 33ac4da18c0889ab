// Package server exposes the pagekit runtime over HTTP: enhanced page
// serving, the assistant proxies, site search, preference storage, health,
// metrics, and a websocket tap on the event bus.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/config"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/metric"
	"github.com/milodocs/pagekit/pkg/cache"
	"github.com/milodocs/pagekit/search"
	"github.com/milodocs/pagekit/storage"
)

// Options carries the shared backends the server exposes.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metric.Registry
	Store   storage.Store
	Index   *search.Index   // nil disables /api/search
	Chat    *askdocs.Client // nil disables /api/chat and /api/summarize
	Bus     *eventbus.Bus
}

// Server is the HTTP surface over one pagekit deployment.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.Registry
	store   storage.Store
	index   *search.Index
	chat    *askdocs.Client
	bus     *eventbus.Bus

	// pages memoizes enhanced pages per device class. Nil when the cache
	// is disabled.
	pages *cache.Cache[[]byte]

	router     chi.Router
	httpServer *http.Server
}

// New assembles the router. Every option except Config and Store can be nil;
// absent backends disable their routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New(opts.Logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.NewRegistry()
	}

	s := &Server{
		cfg:     opts.Config,
		logger:  opts.Logger.With("subsystem", "server"),
		metrics: opts.Metrics,
		store:   opts.Store,
		index:   opts.Index,
		chat:    opts.Chat,
		bus:     opts.Bus,
	}
	if ttl := opts.Config.Server.PageCacheTTL; ttl > 0 {
		s.pages = cache.New[[]byte](ttl, ttl)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.metrics.PrometheusRegistry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// REST routes get a deadline; the event stream stays open.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if s.chat != nil {
				r.Get("/chat", s.handleChat)
				r.Post("/summarize", s.handleSummarize)
			}
			if s.index != nil {
				r.Get("/search", s.handleSearch)
			}
			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", s.handlePreferenceKeys)
				r.Get("/{key}", s.handlePreferenceGet)
				r.Put("/{key}", s.handlePreferencePut)
				r.Delete("/{key}", s.handlePreferenceDelete)
			})
		})
		r.Get("/events", s.handleEvents)
	})

	r.With(middleware.Timeout(60 * time.Second)).Get("/pages/*", s.handlePage)

	return r
}

// Router returns the underlying router, for tests and embedding.
func (s *Server) Router() chi.Router { return s.router }

// Bus returns the event bus shared with page runtimes.
func (s *Server) Bus() *eventbus.Bus { return s.bus }

// Start listens on the configured address and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		// No WriteTimeout: the event stream holds its connection open and
		// sets per-message write deadlines itself.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("listening", "addr", s.cfg.Server.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.pages != nil {
		s.pages.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
