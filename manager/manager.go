// Package manager tracks live component instances, creates them on demand
// with duplicate suppression, discovers declaratively marked elements in the
// document, and tears everything down on shutdown.
//
// The manager is an explicit runtime object, not package-level state:
// independent managers (tests included) never share instance tables.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/health"
	"github.com/milodocs/pagekit/metric"
)

// MarkerAttr is the discovery marker attribute: its value names the
// registered component that should manage the element.
const MarkerAttr = "data-component"

// ChannelDestroyAll is the global channel broadcast before DestroyAll tears
// down tracked instances, so instances not tracked by id can self-terminate.
const ChannelDestroyAll = "runtime:destroy-all"

// Options configures a Manager.
type Options struct {
	// RateInterval is the minimum interval between reactive discovery
	// passes. Zero gets a default of 200ms.
	RateInterval time.Duration

	// Metrics receives lifecycle and discovery metrics. Can be nil.
	Metrics *metric.Registry

	// Logger for manager activity. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// CreateConfig carries per-create overrides.
type CreateConfig struct {
	// Selector overrides the registration's default target selector.
	Selector string

	// Options overlays the registration's default options.
	Options map[string]any
}

type selectorKey struct {
	name     string
	selector string
}

type elementBinding struct {
	el *dom.Element
	id string
}

// Manager owns the live-instance table and the discovery machinery. The
// table and the marker-to-instance mapping are only touched through Manager
// methods.
type Manager struct {
	registry *component.Registry
	doc      *dom.Document
	bus      *eventbus.Bus
	deps     component.Dependencies
	metrics  *metric.Registry
	logger   *slog.Logger

	rateInterval time.Duration

	mu         sync.Mutex
	instances  map[string]component.Component // by instance id
	bySelector map[selectorKey]string         // (name, selector) -> instance id
	elements   []elementBinding               // singleton-element claims
	readyGate  chan struct{}                  // closed and replaced on each ready transition

	// Reactive discovery lifetime.
	reactive       bool
	reactiveCancel context.CancelFunc
	obs            *dom.Observer
	wg             sync.WaitGroup
}

// New creates a Manager over a registry, document, and bus. The deps value
// is handed to factories with the manager installed as dependency resolver.
func New(registry *component.Registry, doc *dom.Document, bus *eventbus.Bus, deps component.Dependencies, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = 200 * time.Millisecond
	}

	m := &Manager{
		registry:     registry,
		doc:          doc,
		bus:          bus,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("subsystem", "manager"),
		rateInterval: opts.RateInterval,
		instances:    make(map[string]component.Component),
		bySelector:   make(map[selectorKey]string),
		readyGate:    make(chan struct{}),
	}

	deps.Document = doc
	deps.Bus = bus
	deps.Resolver = m
	if deps.Metrics == nil {
		deps.Metrics = opts.Metrics
	}
	m.deps = deps

	return m
}

// Create looks up the registered descriptor for name and runs a new instance
// through the lifecycle. If a live instance already satisfies the identity
// rule for the target — same (name, selector) pair, or any instance bound to
// the same singleton element — that instance is returned instead and no new
// one is created. An unregistered name is an error.
func (m *Manager) Create(ctx context.Context, name string, cfg CreateConfig) (component.Component, error) {
	reg, ok := m.registry.Lookup(name)
	if !ok {
		err := errors.WrapInvalid(errors.ErrNotRegistered, "Manager", "Create", "descriptor lookup: "+name)
		m.logger.Error("create for unregistered component", "name", name)
		return nil, err
	}

	instCfg := reg.NewConfig(cfg.Selector, cfg.Options)

	// Resolve the candidate element up front so both identity checks see it.
	var el *dom.Element
	if instCfg.Selector != "" {
		found, err := m.doc.QuerySelector(instCfg.Selector)
		if err != nil {
			return nil, errors.Wrap(err, "Manager", "Create", "selector parse")
		}
		el = found
	}

	m.mu.Lock()
	if existing := m.findLiveLocked(name, instCfg.Selector, el); existing != nil {
		m.mu.Unlock()
		m.logger.Debug("create suppressed, returning existing instance",
			"name", name, "selector", instCfg.Selector, "id", existing.ID())
		if m.metrics != nil {
			m.metrics.Core.RecordDuplicateSuppressed(name)
		}
		return existing, nil
	}
	m.mu.Unlock()

	inst, err := reg.Factory(instCfg, m.deps)
	if err != nil {
		return nil, errors.Wrap(err, "Manager", "Create", "factory execution")
	}

	// Mark the element before initialization so an overlapping discovery
	// pass does not double-instantiate it.
	if el != nil {
		el.SetAttr(component.AttrProcessing, inst.ID())
		defer el.RemoveAttr(component.AttrProcessing)
	}

	// Claim the identity slot before initializing; a failed init releases
	// it.
	m.track(inst, instCfg.Selector, el)

	start := time.Now()
	state := inst.Initialize(ctx)
	if m.metrics != nil {
		m.metrics.Core.RecordInitDuration(name, time.Since(start))
	}

	if state != component.StateReady {
		m.untrack(inst.ID())
		if m.metrics != nil {
			m.metrics.Core.RecordInstanceFailed(name)
		}
		// Failure (including expected absence) is local and silent: the
		// instance carries the state, nothing propagates.
		return inst, nil
	}

	if m.metrics != nil {
		m.metrics.Core.RecordInstanceCreated(name)
	}
	m.broadcastReady()
	return inst, nil
}

// findLiveLocked applies the identity rule. Caller holds m.mu.
func (m *Manager) findLiveLocked(name, selector string, el *dom.Element) component.Component {
	// Any instance bound to the same singleton element wins, regardless of
	// which component name claims it.
	if el != nil && dom.IsSingletonSelector(selector) {
		for _, binding := range m.elements {
			if binding.el.Equal(el) {
				if inst := m.instances[binding.id]; inst != nil && inst.State().IsLive() {
					return inst
				}
			}
		}
	}
	// Otherwise (name, selector) identity.
	if selector != "" {
		if id, ok := m.bySelector[selectorKey{name, selector}]; ok {
			if inst := m.instances[id]; inst != nil && inst.State().IsLive() {
				return inst
			}
		}
	}
	return nil
}

// track records the instance in the live tables.
func (m *Manager) track(inst component.Component, selector string, el *dom.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ID()] = inst
	if selector != "" {
		m.bySelector[selectorKey{inst.Name(), selector}] = inst.ID()
	}
	if el != nil {
		m.elements = append(m.elements, elementBinding{el: el, id: inst.ID()})
	}
}

// untrack removes an instance from all tables.
func (m *Manager) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instances, id)
	for key, trackedID := range m.bySelector {
		if trackedID == id {
			delete(m.bySelector, key)
		}
	}
	kept := m.elements[:0]
	for _, binding := range m.elements {
		if binding.id != id {
			kept = append(kept, binding)
		}
	}
	m.elements = kept
}

// broadcastReady wakes every WaitReady waiter to re-check.
func (m *Manager) broadcastReady() {
	m.mu.Lock()
	close(m.readyGate)
	m.readyGate = make(chan struct{})
	m.mu.Unlock()
}

// WaitReady blocks until some instance of the named component is ready.
// Components use this through the dependency stage of Initialize.
func (m *Manager) WaitReady(ctx context.Context, name string) error {
	for {
		m.mu.Lock()
		gate := m.readyGate
		for _, inst := range m.instances {
			if inst.Name() == name && inst.State() == component.StateReady {
				m.mu.Unlock()
				return nil
			}
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "Manager", "WaitReady", "dependency "+name)
		case <-gate:
		}
	}
}

// Get returns a tracked instance by id.
func (m *Manager) Get(id string) (component.Component, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// Instances returns a snapshot of all tracked instances.
func (m *Manager) Instances() []component.Component {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]component.Component, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// InstancesByName returns tracked instances of one component name.
func (m *Manager) InstancesByName(name string) []component.Component {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []component.Component
	for _, inst := range m.instances {
		if inst.Name() == name {
			out = append(out, inst)
		}
	}
	return out
}

// Destroy tears down one instance by id.
func (m *Manager) Destroy(id string) {
	inst, ok := m.Get(id)
	if !ok {
		return
	}
	inst.Destroy()
	m.untrack(id)
	if m.metrics != nil {
		m.metrics.Core.RecordInstanceDestroyed(inst.Name())
	}
}

// DestroyByName tears down every tracked instance of a component name.
func (m *Manager) DestroyByName(name string) {
	for _, inst := range m.InstancesByName(name) {
		m.Destroy(inst.ID())
	}
}

// DestroyAll broadcasts the global destroy-all signal, then tears down every
// tracked instance.
func (m *Manager) DestroyAll() {
	m.bus.Emit(ChannelDestroyAll, nil)
	for _, inst := range m.Instances() {
		m.Destroy(inst.ID())
	}
}

// Health aggregates the health of every tracked instance.
func (m *Manager) Health() health.Status {
	instances := m.Instances()
	subs := make([]health.Status, 0, len(instances))
	for _, inst := range instances {
		subs = append(subs, inst.Health())
	}
	return health.Aggregate("manager", subs)
}

// Close disables reactive discovery and destroys all instances.
func (m *Manager) Close() {
	m.disableReactive()
	m.DestroyAll()
}
