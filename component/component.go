// Package component defines the unit-of-behavior lifecycle contract every
// pagekit widget implements, the base implementation providing the staged
// initialization machinery, and the descriptor registry mapping component
// names to factories.
package component

import (
	"context"
	"log/slog"

	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/health"
	"github.com/milodocs/pagekit/metric"
	"github.com/milodocs/pagekit/storage"
)

// Component is one self-contained piece of page behavior with a managed
// init/teardown lifecycle. Implementations embed *Base and override the
// hooks they need.
type Component interface {
	// Name returns the registered component name (the discovery marker
	// value).
	Name() string

	// ID returns the generated unique instance identifier.
	ID() string

	// Selector returns the target selector, or "" for selector-less
	// components (pure logic, no element binding).
	Selector() string

	// State returns the current lifecycle state.
	State() State

	// Element returns the bound element, or nil before initialization or for
	// selector-less components.
	Element() *dom.Element

	// Initialize runs the staged lifecycle and returns the resulting state.
	// It is idempotent: calling it on a non-uninitialized instance warns and
	// returns the current state. Failures never propagate; callers inspect
	// the returned state.
	Initialize(ctx context.Context) State

	// Destroy tears the instance down: every tracked listener is removed,
	// owned children are destroyed, bookkeeping attributes are cleared, and
	// the state becomes destroyed. Idempotent.
	Destroy()

	// Health reports the instance's health derived from its lifecycle state.
	Health() health.Status
}

// Hooks are the subclass extension points Initialize runs in order. Base
// provides no-op defaults; widgets override what they need.
type Hooks interface {
	// SetupElements locates and tags the instance's DOM subtree.
	SetupElements(ctx context.Context) error

	// BindEvents attaches DOM listeners. Listeners registered through
	// Base.Listen are scoped to the instance's cancellation signal and
	// tracked for explicit removal on Destroy.
	BindEvents(ctx context.Context) error

	// OnInit runs component-specific behavior after elements and events are
	// in place.
	OnInit(ctx context.Context) error
}

// DependencyResolver blocks until a named component dependency is ready.
// The manager implements this; instances consult it during the dependency
// stage of Initialize.
type DependencyResolver interface {
	WaitReady(ctx context.Context, name string) error
}

// Dependencies provides all external dependencies a component needs. The
// structure is passed to factories rather than individual fields so new
// dependencies do not churn every factory signature.
type Dependencies struct {
	Document *dom.Document      // Page document (required for bound components)
	Bus      *eventbus.Bus      // In-process event bus (required)
	Store    storage.Store      // Preference storage (can be nil)
	Metrics  *metric.Registry   // Metrics registry (can be nil)
	Logger   *slog.Logger       // Structured logger (can be nil, defaults to slog.Default())
	Resolver DependencyResolver // Dependency readiness, supplied by the manager (can be nil)
}

// GetLogger returns the configured logger or a default logger if none is
// provided.
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context.
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
