package dom

import (
	"sync"
	"sync/atomic"
)

// MutationType classifies a document mutation.
type MutationType int

const (
	// MutationAttribute records an attribute set or removal.
	MutationAttribute MutationType = iota
	// MutationChildList records children added to or removed from a parent.
	MutationChildList
)

// MutationRecord describes one document mutation. Bookkeeping attribute
// writes made by the dom layer itself (data-pk-*) do not produce records;
// observers only see mutations made through the public element API.
type MutationRecord struct {
	Type    MutationType
	Target  *Element
	Attr    string     // set for MutationAttribute
	Added   []*Element // set for MutationChildList appends
	Removed []*Element // set for MutationChildList removals
}

// Observer receives mutation records from a document. Delivery is
// best-effort: if a consumer falls behind the buffer, records are dropped and
// counted, never blocking the mutating caller.
type Observer struct {
	doc     *Document
	ch      chan MutationRecord
	dropped atomic.Int64

	mu     sync.Mutex // serializes sends against Close
	closed bool
}

// Observe registers a new mutation observer with the given buffer size.
// A non-positive buffer gets a default of 64.
func (d *Document) Observe(buffer int) *Observer {
	if buffer <= 0 {
		buffer = 64
	}
	obs := &Observer{doc: d, ch: make(chan MutationRecord, buffer)}

	d.mu.Lock()
	d.observers = append(d.observers, obs)
	d.obsSeq++
	d.mu.Unlock()

	return obs
}

// Records returns the channel mutation records arrive on. The channel closes
// when the observer is closed.
func (o *Observer) Records() <-chan MutationRecord {
	return o.ch
}

// Dropped returns how many records were discarded because the buffer was
// full.
func (o *Observer) Dropped() int64 {
	return o.dropped.Load()
}

// Close disconnects the observer and closes its record channel. Idempotent.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.ch)
	o.mu.Unlock()

	o.doc.mu.Lock()
	for i, obs := range o.doc.observers {
		if obs == o {
			o.doc.observers = append(o.doc.observers[:i], o.doc.observers[i+1:]...)
			break
		}
	}
	o.doc.mu.Unlock()
}

// notify fans a record out to all observers without blocking.
func (d *Document) notify(rec MutationRecord) {
	d.mu.Lock()
	observers := make([]*Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, obs := range observers {
		obs.mu.Lock()
		if !obs.closed {
			select {
			case obs.ch <- rec:
			default:
				obs.dropped.Add(1)
			}
		}
		obs.mu.Unlock()
	}
}
