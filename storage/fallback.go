package storage

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/milodocs/pagekit/errors"
)

// Fallback wraps a persistent backend and silently degrades to an in-memory
// stand-in after the first backend fault, for the remainder of the process.
// Key absence is not a fault. Degradation is logged once and never surfaced
// to widget users; their visible state keeps working off the memory copy.
type Fallback struct {
	backend Store
	memory  *Memory
	logger  *slog.Logger

	mu       sync.Mutex
	degraded bool
}

// NewFallback wraps backend. A nil logger falls back to slog.Default.
func NewFallback(backend Store, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		backend: backend,
		memory:  NewMemory(),
		logger:  logger.With("subsystem", "storage"),
	}
}

// Degraded reports whether the backend has been abandoned for memory.
func (f *Fallback) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

// degrade switches to memory permanently; first call logs the cause.
func (f *Fallback) degrade(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return
	}
	f.degraded = true
	f.logger.Warn("preference backend failed, continuing in memory",
		"operation", op, "error", err)
}

// isFault distinguishes backend failures from ordinary key absence.
func isFault(err error) bool {
	return err != nil && !stderrors.Is(err, errors.ErrKeyNotFound)
}

// Get reads from the backend until degraded, then from memory.
func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	if f.Degraded() {
		return f.memory.Get(ctx, key)
	}
	value, err := f.backend.Get(ctx, key)
	if isFault(err) {
		f.degrade("get", err)
		return f.memory.Get(ctx, key)
	}
	return value, err
}

// Put writes through to the backend; on fault it degrades and keeps the
// write in memory so the caller's state stays coherent.
func (f *Fallback) Put(ctx context.Context, key string, value []byte) error {
	if f.Degraded() {
		return f.memory.Put(ctx, key, value)
	}
	if err := f.backend.Put(ctx, key, value); err != nil {
		f.degrade("put", err)
		return f.memory.Put(ctx, key, value)
	}
	// Shadow successful writes so a later degradation still sees them.
	_ = f.memory.Put(ctx, key, value)
	return nil
}

// Delete removes a key from whichever side is active.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	_ = f.memory.Delete(ctx, key)
	if f.Degraded() {
		return nil
	}
	if err := f.backend.Delete(ctx, key); err != nil {
		f.degrade("delete", err)
	}
	return nil
}

// Keys lists keys from the active side.
func (f *Fallback) Keys(ctx context.Context, prefix string) ([]string, error) {
	if f.Degraded() {
		return f.memory.Keys(ctx, prefix)
	}
	keys, err := f.backend.Keys(ctx, prefix)
	if err != nil {
		f.degrade("keys", err)
		return f.memory.Keys(ctx, prefix)
	}
	return keys, nil
}

// Close closes the backend; the memory stand-in needs no cleanup.
func (f *Fallback) Close() error {
	return f.backend.Close()
}
