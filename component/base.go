package component

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/health"
)

// Bookkeeping attributes the framework writes on elements it manages.
const (
	// AttrInstance records the id of the instance bound to an element.
	AttrInstance = "data-pk-instance"
	// AttrProcessing marks an element whose instance is mid-initialization,
	// so overlapping discovery passes skip it.
	AttrProcessing = "data-pk-processing"
)

// Config describes one instance to be constructed.
type Config struct {
	// Name is the registered component name.
	Name string

	// Selector targets the element this instance binds to. Empty means
	// selector-less: the existence check is skipped and no element is bound.
	Selector string

	// DependsOn lists component names that must be ready before this
	// instance's setup hooks run.
	DependsOn []string

	// Options carries the merged configuration mapping (registration
	// defaults overlaid with per-create overrides).
	Options map[string]any
}

// Base provides the staged lifecycle machinery. Widgets embed *Base and
// override the Hooks they need; the hooks receiver must be handed to NewBase
// so staged initialization reaches the outer type.
type Base struct {
	cfg    Config
	id     string
	deps   Dependencies
	hooks  Hooks
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	element   *dom.Element
	children  []Component
	listeners []*dom.ListenerHandle

	// Instance cancellation signal: created on Initialize, canceled on
	// Destroy. Every listener registered through Listen is scoped to it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBase constructs the lifecycle base for an instance. hooks is the outer
// widget value; pass nil for a component with no custom hooks.
func NewBase(cfg Config, deps Dependencies, hooks Hooks) *Base {
	b := &Base{
		cfg:    cfg,
		id:     uuid.NewString(),
		deps:   deps,
		logger: deps.GetLoggerWithComponent(cfg.Name),
		state:  StateUninitialized,
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	b.hooks = hooks
	return b
}

type noopHooks struct{}

func (noopHooks) SetupElements(context.Context) error { return nil }
func (noopHooks) BindEvents(context.Context) error    { return nil }
func (noopHooks) OnInit(context.Context) error        { return nil }

// Name returns the registered component name.
func (b *Base) Name() string { return b.cfg.Name }

// ID returns the generated unique instance identifier.
func (b *Base) ID() string { return b.id }

// Selector returns the configured target selector.
func (b *Base) Selector() string { return b.cfg.Selector }

// Options returns the instance's configuration mapping.
func (b *Base) Options() map[string]any { return b.cfg.Options }

// Deps returns the instance's dependencies.
func (b *Base) Deps() Dependencies { return b.deps }

// Logger returns the component-scoped logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Element returns the bound element, nil until initialized or for
// selector-less components.
func (b *Base) Element() *dom.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.element
}

// setState transitions the lifecycle state under lock.
func (b *Base) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Initialize runs the staged lifecycle: existence check, dependency
// resolution, SetupElements, BindEvents, OnInit. On success it transitions
// to ready and publishes the "ready" event. An empty selector match is not
// an error, just inactive on this page. Failures are logged and recorded in
// the state; nothing propagates to the caller.
func (b *Base) Initialize(ctx context.Context) State {
	b.mu.Lock()
	if b.state != StateUninitialized {
		b.logger.Warn("initialize called on non-uninitialized instance",
			"id", b.id, "state", b.state.String())
		current := b.state
		b.mu.Unlock()
		return current
	}
	b.state = StateInitializing
	// Instance lifetime is decoupled from the caller's context: listeners
	// outlive the Initialize call and die with Destroy.
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	// Existence check. Selector-less components skip it.
	if b.cfg.Selector != "" {
		el, err := b.deps.Document.QuerySelector(b.cfg.Selector)
		if err != nil {
			return b.fail(errors.Wrap(err, b.cfg.Name, "Initialize", "selector parse"))
		}
		if el == nil {
			// Expected absence: inactive on this page.
			b.logger.Debug("selector matched nothing, component inactive",
				"selector", b.cfg.Selector)
			b.setState(StateFailed)
			return StateFailed
		}
		b.mu.Lock()
		b.element = el
		b.mu.Unlock()
		el.SetAttr(AttrInstance, b.id)
	}

	// Dependency resolution: named dependencies must be ready first.
	if len(b.cfg.DependsOn) > 0 && b.deps.Resolver != nil {
		for _, dep := range b.cfg.DependsOn {
			if err := b.deps.Resolver.WaitReady(ctx, dep); err != nil {
				return b.fail(errors.Wrap(err, b.cfg.Name, "Initialize",
					fmt.Sprintf("dependency %q", dep)))
			}
		}
	}

	if err := b.hooks.SetupElements(b.ctx); err != nil {
		return b.fail(errors.Wrap(err, b.cfg.Name, "Initialize", "element setup"))
	}
	if err := b.hooks.BindEvents(b.ctx); err != nil {
		return b.fail(errors.Wrap(err, b.cfg.Name, "Initialize", "event binding"))
	}
	if err := b.hooks.OnInit(b.ctx); err != nil {
		return b.fail(errors.Wrap(err, b.cfg.Name, "Initialize", "component init"))
	}

	b.setState(StateReady)
	b.Emit("ready", map[string]string{"id": b.id})
	return StateReady
}

// fail records an initialization fault: log, cancel the instance signal so
// partially bound listeners die, mark failed.
func (b *Base) fail(err error) State {
	b.logger.Error("component initialization failed", "id", b.id, "error", err)
	if b.cancel != nil {
		b.cancel()
	}
	b.setState(StateFailed)
	return StateFailed
}

// Destroy tears the instance down. Listener cleanup is deliberately doubled:
// every tracked handle is removed explicitly and the instance signal is
// canceled, because cached-page restores have shown signal-only cleanup
// leaving stale listeners behind. Idempotent.
func (b *Base) Destroy() {
	b.mu.Lock()
	if b.state == StateDestroyed {
		b.mu.Unlock()
		return
	}
	b.state = StateDestroyed
	listeners := b.listeners
	b.listeners = nil
	children := b.children
	b.children = nil
	el := b.element
	cancel := b.cancel
	b.mu.Unlock()

	for _, h := range listeners {
		h.Remove()
	}
	if cancel != nil {
		cancel()
	}

	for _, child := range children {
		child.Destroy()
	}

	if el != nil {
		el.RemoveAllListeners()
		el.RemoveAttr(AttrInstance)
		el.RemoveAttr(AttrProcessing)
	}

	if b.deps.Bus != nil {
		b.deps.Bus.OffContext(b)
	}

	b.Emit("destroyed", map[string]string{"id": b.id})
}

// Listen attaches a DOM listener scoped to the instance cancellation signal
// and tracks its handle for explicit removal on Destroy.
func (b *Base) Listen(el *dom.Element, event string, handler dom.UIHandler) {
	if el == nil {
		return
	}
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	if ctx == nil {
		// Listen before Initialize is a programming error; scope to an
		// unscoped background listener rather than panic.
		ctx = context.Background()
	}
	h := el.On(ctx, event, handler)
	b.mu.Lock()
	b.listeners = append(b.listeners, h)
	b.mu.Unlock()
}

// AddChild records an owned sub-instance destroyed with this one.
func (b *Base) AddChild(c Component) {
	if c == nil {
		return
	}
	b.mu.Lock()
	b.children = append(b.children, c)
	b.mu.Unlock()
}

// Emit publishes on the component's own namespace:
// "component:<name>:<event>".
func (b *Base) Emit(event string, payload any) {
	if b.deps.Bus == nil {
		return
	}
	b.deps.Bus.Emit(eventbus.ComponentChannel(b.cfg.Name, event), payload)
}

// Subscribe registers a bus handler owned by this instance; all such
// subscriptions are revoked in one operation on Destroy. An event name
// without a colon is treated as shorthand for the component's own namespace.
func (b *Base) Subscribe(channel string, handler eventbus.Handler) *eventbus.Subscription {
	if b.deps.Bus == nil {
		return nil
	}
	if !strings.Contains(channel, ":") {
		channel = eventbus.ComponentChannel(b.cfg.Name, channel)
	}
	return b.deps.Bus.On(channel, handler, eventbus.SubscribeOptions{Context: b})
}

// Health reports instance health derived from lifecycle state.
func (b *Base) Health() health.Status {
	switch b.State() {
	case StateReady:
		return health.NewHealthy(b.cfg.Name, "component ready")
	case StateInitializing:
		return health.NewDegraded(b.cfg.Name, "component initializing")
	case StateUninitialized:
		return health.NewDegraded(b.cfg.Name, "component not initialized")
	case StateFailed:
		return health.NewUnhealthy(b.cfg.Name, "component failed or inactive")
	default:
		return health.NewUnhealthy(b.cfg.Name, "component destroyed")
	}
}
