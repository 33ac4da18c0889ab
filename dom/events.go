package dom

import (
	"context"
	"strconv"
	"sync"
)

// UIEvent is a synthetic user-interaction event dispatched on an element.
type UIEvent struct {
	Type    string
	Target  *Element
	Payload any

	stopped bool
}

// StopPropagation prevents the event from bubbling past the current element.
func (e *UIEvent) StopPropagation() {
	e.stopped = true
}

// UIHandler handles dispatched events.
type UIHandler func(*UIEvent)

type listener struct {
	id      uint64
	event   string
	handler UIHandler
	done    <-chan struct{} // from the scoping context, nil if none
	doneFn  func()          // stops the cancellation watcher
}

// ListenerHandle identifies one registered listener for explicit removal.
type ListenerHandle struct {
	el   *Element
	id   uint64
	once sync.Once
}

// Remove explicitly removes the listener. Idempotent, and safe to call after
// the scoping context already revoked it.
func (h *ListenerHandle) Remove() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.el.removeListenerByID(h.id)
	})
}

// On registers a handler for an event type. The listener lives until the
// handle's Remove is called or ctx is canceled, whichever comes first; both
// paths are idempotent and may overlap. The element's listener bookkeeping
// attribute is updated on every change.
func (e *Element) On(ctx context.Context, event string, handler UIHandler) *ListenerHandle {
	if handler == nil {
		return nil
	}

	e.doc.mu.Lock()
	st := e.doc.state[e.node]
	if st == nil {
		st = &nodeState{}
		e.doc.state[e.node] = st
	}
	st.nextID++
	l := &listener{id: st.nextID, event: event, handler: handler}
	st.listeners = append(st.listeners, l)
	e.setAttrLocked(AttrListeners, strconv.Itoa(len(st.listeners)))
	e.doc.mu.Unlock()

	handle := &ListenerHandle{el: e, id: l.id}

	if ctx != nil && ctx.Done() != nil {
		watchCtx, stop := context.WithCancel(context.Background())
		l.doneFn = stop
		go func() {
			select {
			case <-ctx.Done():
				handle.Remove()
			case <-watchCtx.Done():
			}
		}()
	}
	return handle
}

// removeListenerByID drops a listener and refreshes the bookkeeping
// attribute.
func (e *Element) removeListenerByID(id uint64) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	st := e.doc.state[e.node]
	if st == nil {
		return
	}
	for i, l := range st.listeners {
		if l.id == id {
			if l.doneFn != nil {
				l.doneFn()
			}
			st.listeners = append(st.listeners[:i], st.listeners[i+1:]...)
			break
		}
	}
	if len(st.listeners) == 0 {
		delete(e.doc.state, e.node)
		e.removeAttrLocked(AttrListeners)
	} else {
		e.setAttrLocked(AttrListeners, strconv.Itoa(len(st.listeners)))
	}
}

func (e *Element) removeAttrLocked(key string) {
	for i, a := range e.node.Attr {
		if a.Key == key {
			e.node.Attr = append(e.node.Attr[:i], e.node.Attr[i+1:]...)
			return
		}
	}
}

// RemoveAllListeners removes every listener on the element and clears the
// bookkeeping attribute.
func (e *Element) RemoveAllListeners() {
	e.doc.mu.Lock()
	st := e.doc.state[e.node]
	if st != nil {
		for _, l := range st.listeners {
			if l.doneFn != nil {
				l.doneFn()
			}
		}
		delete(e.doc.state, e.node)
	}
	e.removeAttrLocked(AttrListeners)
	e.doc.mu.Unlock()
}

// ListenerCount returns the number of live listeners the dom layer tracks for
// the element.
func (e *Element) ListenerCount() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	st := e.doc.state[e.node]
	if st == nil {
		return 0
	}
	return len(st.listeners)
}

// BookkeepingCount returns the listener count recorded in the element's
// tracking attribute. Diverging from ListenerCount indicates desynced state.
func (e *Element) BookkeepingCount() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return listenerCountAttr(e.node)
}

// Dispatch delivers a synthetic event to the element's listeners and then
// bubbles it through ancestors until stopped. Handlers run synchronously in
// registration order.
func (e *Element) Dispatch(event string, payload any) {
	evt := &UIEvent{Type: event, Target: e, Payload: payload}
	for cur := e; cur != nil && !evt.stopped; cur = cur.Parent() {
		e.doc.mu.Lock()
		var handlers []UIHandler
		if st := e.doc.state[cur.node]; st != nil {
			for _, l := range st.listeners {
				if l.event == event {
					handlers = append(handlers, l.handler)
				}
			}
		}
		e.doc.mu.Unlock()

		for _, h := range handlers {
			h(evt)
			if evt.stopped {
				break
			}
		}
	}
}

// Click is shorthand for dispatching a "click" event.
func (e *Element) Click() {
	e.Dispatch("click", nil)
}
