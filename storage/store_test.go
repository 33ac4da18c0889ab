package storage

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milodocs/pagekit/errors"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "theme")
	assert.True(t, stderrors.Is(err, errors.ErrKeyNotFound))

	require.NoError(t, m.Put(ctx, "theme", []byte("dark")))
	value, err := m.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("dark"), value)

	require.NoError(t, m.Delete(ctx, "theme"))
	_, err = m.Get(ctx, "theme")
	assert.True(t, stderrors.Is(err, errors.ErrKeyNotFound))
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("abc")))

	value, err := m.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'X'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "chat.transcript", []byte(`[]`)))
	require.NoError(t, s.Put(ctx, "chat.transcript", []byte(`[{"user":"hi"}]`)))

	value, err := s.Get(ctx, "chat.transcript")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"user":"hi"}]`), value)

	_, err = s.Get(ctx, "absent")
	assert.True(t, stderrors.Is(err, errors.ErrKeyNotFound))

	keys, err := s.Keys(ctx, "chat.")
	require.NoError(t, err)
	assert.Equal(t, []string{"chat.transcript"}, keys)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type pref struct {
		View      string `json:"view"`
		Collapsed bool   `json:"collapsed"`
	}

	require.NoError(t, PutJSON(ctx, m, "collapse.intro", pref{View: "list", Collapsed: true}))

	var got pref
	require.NoError(t, GetJSON(ctx, m, "collapse.intro", &got))
	assert.Equal(t, pref{View: "list", Collapsed: true}, got)

	// Malformed blobs are invalid, not fatal: callers use defaults.
	require.NoError(t, m.Put(ctx, "broken", []byte("{not json")))
	err := GetJSON(ctx, m, "broken", &got)
	assert.True(t, errors.IsInvalid(err))
}

// failStore simulates a backend where every write hits a quota failure.
type failStore struct {
	*Memory
	failPuts bool
}

func (f *failStore) Put(ctx context.Context, key string, value []byte) error {
	if f.failPuts {
		return errors.WrapTransient(errors.ErrQuotaExceeded, "failStore", "Put", "write")
	}
	return f.Memory.Put(ctx, key, value)
}

func TestFallbackDegradesSilently(t *testing.T) {
	ctx := context.Background()
	backend := &failStore{Memory: NewMemory(), failPuts: true}
	f := NewFallback(backend, nil)

	// Every write fails at the backend; the caller never sees it.
	require.NoError(t, f.Put(ctx, "theme", []byte("dark")))
	assert.True(t, f.Degraded())

	value, err := f.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("dark"), value)

	// Later interactions keep working entirely in memory.
	require.NoError(t, f.Put(ctx, "theme", []byte("light")))
	value, err = f.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("light"), value)
}

func TestFallbackShadowsSuccessfulWrites(t *testing.T) {
	ctx := context.Background()
	backend := &failStore{Memory: NewMemory()}
	f := NewFallback(backend, nil)

	require.NoError(t, f.Put(ctx, "theme", []byte("dark")))
	assert.False(t, f.Degraded())

	// Backend starts failing after a healthy period; the earlier write is
	// still visible from the memory shadow.
	backend.failPuts = true
	require.NoError(t, f.Put(ctx, "tabs.view", []byte("code")))
	assert.True(t, f.Degraded())

	value, err := f.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("dark"), value)
}

func TestFallbackKeyAbsenceIsNotAFault(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(NewMemory(), nil)

	_, err := f.Get(ctx, "absent")
	assert.True(t, stderrors.Is(err, errors.ErrKeyNotFound))
	assert.False(t, f.Degraded())
}
