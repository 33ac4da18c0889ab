// Package eventbus provides the in-process publish/subscribe dispatcher used
// by pagekit components. Delivery is synchronous and ordered: within one Emit,
// subscribers run in subscription order, and a panicking subscriber never
// prevents later subscribers from running.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Channel string
	Payload any
}

// Handler is invoked for each event on a subscribed channel.
type Handler func(Event)

// SubscribeOptions configures a single subscription.
type SubscribeOptions struct {
	// Once removes the subscription after its first invocation.
	Once bool
	// Context is an opaque value carried on the subscription, available to
	// introspection and used by components to bulk-remove their handlers.
	Context any
}

// Subscription identifies one registered handler on one channel.
type Subscription struct {
	bus     *Bus
	channel string
	id      uint64
	once    sync.Once
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.channel, s.id)
	})
}

// Channel returns the channel name this subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

type subscriber struct {
	id      uint64
	handler Handler
	once    bool
	context any
}

// Bus is a named-channel pub/sub dispatcher. Channel entries are created
// lazily on first subscribe and pruned when their subscriber set empties.
type Bus struct {
	mu       sync.RWMutex
	channels map[string][]*subscriber
	nextID   uint64
	logger   *slog.Logger
}

// New creates an empty bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		channels: make(map[string][]*subscriber),
		logger:   logger.With("subsystem", "eventbus"),
	}
}

// ComponentChannel builds the channel name a component publishes its own
// lifecycle and domain events on: "component:<name>:<event>".
func ComponentChannel(componentName, event string) string {
	return fmt.Sprintf("component:%s:%s", componentName, event)
}

// ChannelAll is the wildcard tap: its subscribers see every event emitted on
// any channel, after that channel's own subscribers.
const ChannelAll = "*"

// On registers a handler for a channel and returns its subscription.
func (b *Bus) On(channel string, handler Handler, opts ...SubscribeOptions) *Subscription {
	if handler == nil {
		return nil
	}
	var o SubscribeOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{
		id:      b.nextID,
		handler: handler,
		once:    o.Once,
		context: o.Context,
	}
	b.channels[channel] = append(b.channels[channel], sub)

	return &Subscription{bus: b, channel: channel, id: sub.id}
}

// Once registers a handler that fires exactly once across any number of
// emissions, then removes itself.
func (b *Bus) Once(channel string, handler Handler) *Subscription {
	return b.On(channel, handler, SubscribeOptions{Once: true})
}

// Off removes a subscription. Equivalent to sub.Cancel().
func (b *Bus) Off(sub *Subscription) {
	sub.Cancel()
}

// OffContext removes every subscription on every channel whose subscribe-time
// Context equals ctx. Components use this to revoke all their handlers in one
// operation during teardown.
func (b *Bus) OffContext(ctx any) {
	if ctx == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.channels {
		kept := subs[:0]
		for _, s := range subs {
			if s.context != ctx {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.channels, channel)
		} else {
			b.channels[channel] = kept
		}
	}
}

// Emit delivers payload to all current subscribers of channel, synchronously,
// in subscription order. Once-subscribers are removed before their handler
// runs, so a handler emitting on its own channel cannot re-trigger itself.
// A panicking handler is logged and skipped; later handlers still run.
func (b *Bus) Emit(channel string, payload any) {
	snapshot := b.take(channel)

	var tap []*subscriber
	if channel != ChannelAll {
		tap = b.take(ChannelAll)
	}
	if len(snapshot) == 0 && len(tap) == 0 {
		return
	}

	evt := Event{Channel: channel, Payload: payload}
	for _, s := range snapshot {
		b.invoke(channel, s, evt)
	}
	for _, s := range tap {
		b.invoke(ChannelAll, s, evt)
	}
}

// take snapshots a channel's ordered subscriber set and drops its
// once-subscribers, pruning the channel if it empties.
func (b *Bus) take(channel string) []*subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.channels[channel]
	if len(subs) == 0 {
		return nil
	}

	snapshot := make([]*subscriber, len(subs))
	copy(snapshot, subs)

	kept := subs[:0]
	for _, s := range subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.channels, channel)
	} else {
		b.channels[channel] = kept
	}
	return snapshot
}

// invoke runs one handler with panic isolation.
func (b *Bus) invoke(channel string, s *subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"channel", channel,
				"subscription", s.id,
				"panic", r)
		}
	}()
	s.handler(evt)
}

// SubscriberCount returns the number of live subscribers on a channel.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// Channels returns the names of all channels with at least one subscriber.
func (b *Bus) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	return names
}

// remove deletes one subscriber by id and prunes the channel if it empties.
func (b *Bus) remove(channel string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.channels[channel]
	for i, s := range subs {
		if s.id == id {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.channels, channel)
	} else {
		b.channels[channel] = subs
	}
}
