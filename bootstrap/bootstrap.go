// Package bootstrap assembles a page runtime: document model, event bus,
// preference store, registry, widgets, and manager, wired from one Config.
// The runtime is an explicit object so independent pages (and tests) never
// share state through package-level registries.
package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/config"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/health"
	"github.com/milodocs/pagekit/manager"
	"github.com/milodocs/pagekit/metric"
	"github.com/milodocs/pagekit/search"
	"github.com/milodocs/pagekit/storage"
	"github.com/milodocs/pagekit/widget"
)

// Runtime is one fully wired page-enhancement context.
type Runtime struct {
	Config   *config.Config
	Document *dom.Document
	Bus      *eventbus.Bus
	Store    storage.Store
	Metrics  *metric.Registry
	Registry *component.Registry
	Manager  *manager.Manager
	Env      Environment
	Logger   *slog.Logger

	chat      *askdocs.Client
	search    *search.Index
	ownsIndex bool
	ownsStore bool
}

// Options tunes runtime assembly beyond the config file.
type Options struct {
	// UserAgent is the requesting client's user agent, for device
	// classification. Empty classifies as desktop.
	UserAgent string

	// Logger overrides the config-derived logger.
	Logger *slog.Logger

	// Metrics shares a registry across runtimes. Nil creates a fresh one.
	Metrics *metric.Registry

	// SearchIndex shares a prebuilt index. Nil builds one from config when
	// the corpus file exists.
	SearchIndex *search.Index

	// Store shares a preference store across runtimes. Nil opens one from
	// config.
	Store storage.Store

	// Bus shares an event bus, letting a host process observe component
	// traffic. Nil creates a fresh one.
	Bus *eventbus.Bus
}

// NewLogger builds the slog logger the config describes.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// New assembles a runtime for one rendered page. The store and search index
// open concurrently; a failure in either aborts assembly.
func New(ctx context.Context, cfg *config.Config, page io.Reader, opts Options) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Bootstrap", "New", "config validation")
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	doc, err := dom.Parse(page)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Bootstrap", "New", "page parsing")
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = metric.NewRegistry()
	}

	var (
		store = opts.Store
		index = opts.SearchIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if store != nil {
			return nil
		}
		var err error
		store, err = OpenStore(gctx, cfg.Storage, logger)
		return err
	})
	g.Go(func() error {
		if index != nil {
			return nil
		}
		var err error
		index, err = OpenSearch(gctx, cfg.Search, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bus := opts.Bus
	if bus == nil {
		bus = eventbus.New(logger)
	}
	registry := component.NewRegistry(logger)

	var chat *askdocs.Client
	if cfg.Endpoints.ChatURL != "" || cfg.Endpoints.SummarizeURL != "" {
		chat = askdocs.NewClient(askdocs.ClientOptions{
			ChatURL:      cfg.Endpoints.ChatURL,
			SummarizeURL: cfg.Endpoints.SummarizeURL,
			Timeout:      cfg.Endpoints.Timeout,
			Metrics:      metrics,
			Logger:       logger,
		})
	}

	if err := widget.Register(registry, widget.Services{Chat: chat, Search: index}); err != nil {
		return nil, err
	}

	mgr := manager.New(registry, doc, bus, component.Dependencies{
		Store:   store,
		Metrics: metrics,
		Logger:  logger,
	}, manager.Options{
		RateInterval: cfg.Runtime.DiscoveryInterval,
		Metrics:      metrics,
		Logger:       logger,
	})

	rt := &Runtime{
		Config:    cfg,
		Document:  doc,
		Bus:       bus,
		Store:     store,
		Metrics:   metrics,
		Registry:  registry,
		Manager:   mgr,
		Env:       DetectEnvironment(doc, opts.UserAgent, cfg.Runtime.MarkerAttr),
		Logger:    logger,
		chat:      chat,
		search:    index,
		ownsIndex: opts.SearchIndex == nil && index != nil,
		ownsStore: opts.Store == nil,
	}

	logger.Info("runtime assembled",
		"device", rt.Env.Device,
		"markers", rt.Env.Markers,
		"chat", chat != nil,
		"search", index != nil)
	return rt, nil
}

// Start runs discovery and, when configured, enables reactive discovery.
func (rt *Runtime) Start(ctx context.Context) {
	rt.Manager.DiscoverAndLoad(ctx)
	if rt.Config.Runtime.ReactiveDiscovery {
		rt.Manager.EnableReactiveDiscovery(ctx)
	}
}

// Chat returns the assistant client, or nil when no endpoint is configured.
func (rt *Runtime) Chat() *askdocs.Client { return rt.chat }

// Search returns the full-text index, or nil when no corpus is available.
func (rt *Runtime) Search() *search.Index { return rt.search }

// Health aggregates manager health under the runtime's name.
func (rt *Runtime) Health() health.Status {
	return rt.Manager.Health()
}

// Close tears down all instances and releases the store and index unless
// they were shared through Options.
func (rt *Runtime) Close() {
	rt.Manager.Close()
	if rt.ownsStore && rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			rt.Logger.Warn("store close failed", "error", err)
		}
	}
	if rt.ownsIndex {
		if err := rt.search.Close(); err != nil {
			rt.Logger.Warn("search index close failed", "error", err)
		}
	}
}

// OpenStore opens the preference store the config describes. An unopenable
// sqlite backend degrades to memory instead of failing.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.StorageSQLite:
		backend, err := storage.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			// Unopenable backend degrades to memory immediately rather than
			// failing page enhancement.
			logger.Warn("sqlite store unavailable, using memory", "path", cfg.Path, "error", err)
			return storage.NewMemory(), nil
		}
		return storage.NewFallback(backend, logger), nil
	default:
		return storage.NewMemory(), nil
	}
}

// OpenSearch opens the full-text index and loads the configured corpus.
// Returns nil without error when no corpus is available.
func OpenSearch(_ context.Context, cfg config.SearchConfig, logger *slog.Logger) (*search.Index, error) {
	if cfg.DataFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.DataFile); err != nil {
		logger.Debug("search corpus absent, search disabled", "path", cfg.DataFile)
		return nil, nil
	}

	index, err := search.New(search.Options{
		Path:       cfg.IndexPath,
		MaxResults: cfg.MaxResults,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	n, err := index.LoadFile(cfg.DataFile)
	if err != nil {
		index.Close()
		return nil, err
	}
	logger.Info("search corpus loaded", "documents", n)
	return index, nil
}
