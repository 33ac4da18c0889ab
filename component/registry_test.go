package component

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(cfg Config, deps Dependencies) (Component, error) {
	w := &testWidget{}
	w.Base = NewBase(cfg, deps, w)
	return w, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(&Registration{
		Name:     "theme-toggle",
		Selector: "#theme-button",
		Factory:  testFactory,
	}))

	reg, ok := r.Lookup("theme-toggle")
	require.True(t, ok)
	assert.Equal(t, "#theme-button", reg.Selector)

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{"theme-toggle"}, r.Names())
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Registration{Name: "", Factory: testFactory}))
	assert.Error(t, r.Register(&Registration{Name: "x", Factory: nil}))
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(&Registration{Name: "tabs", Selector: ".old", Factory: testFactory}))
	require.NoError(t, r.Register(&Registration{Name: "tabs", Selector: ".new", Factory: testFactory}))

	reg, ok := r.Lookup("tabs")
	require.True(t, ok)
	assert.Equal(t, ".new", reg.Selector)
}

func TestRegisterValidatesDefaultOptionsAgainstSchema(t *testing.T) {
	r := NewRegistry(nil)

	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"timeout_ms": {"type": "integer", "minimum": 1}
		},
		"additionalProperties": false
	}`)

	require.NoError(t, r.Register(&Registration{
		Name:           "chat",
		Factory:        testFactory,
		OptionsSchema:  schema,
		DefaultOptions: map[string]any{"timeout_ms": 8000},
	}))

	// A typoed option name fails at registration time.
	err := r.Register(&Registration{
		Name:           "chat",
		Factory:        testFactory,
		OptionsSchema:  schema,
		DefaultOptions: map[string]any{"timeout_msec": 8000},
	})
	assert.Error(t, err)
}

func TestNewConfigMergesOptions(t *testing.T) {
	reg := &Registration{
		Name:           "collapse",
		Selector:       ".collapse",
		DependsOn:      []string{"theme-toggle"},
		DefaultOptions: map[string]any{"animated": true, "depth": 2},
	}

	cfg := reg.NewConfig("", map[string]any{"depth": 3})
	assert.Equal(t, "collapse", cfg.Name)
	assert.Equal(t, ".collapse", cfg.Selector)
	assert.Equal(t, []string{"theme-toggle"}, cfg.DependsOn)
	assert.Equal(t, true, cfg.Options["animated"])
	assert.Equal(t, 3, cfg.Options["depth"])

	override := reg.NewConfig("#specific", nil)
	assert.Equal(t, "#specific", override.Selector)
}

func TestOptionGetters(t *testing.T) {
	options := map[string]any{
		"name":    "milo",
		"count":   float64(3), // JSON numbers decode as float64
		"flag":    true,
		"badbool": "yes",
	}

	assert.Equal(t, "milo", GetString(options, "name", "x"))
	assert.Equal(t, "x", GetString(options, "missing", "x"))
	assert.Equal(t, 3, GetInt(options, "count", 0))
	assert.Equal(t, 7, GetInt(options, "missing", 7))
	assert.True(t, GetBool(options, "flag", false))
	assert.False(t, GetBool(options, "badbool", false))
}

func TestFactoryProducesWorkingInstance(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&Registration{
		Name:     "test-widget",
		Selector: "#toggle",
		Factory:  testFactory,
	}))

	deps := testDeps(t, testPage)
	reg, _ := r.Lookup("test-widget")
	inst, err := reg.Factory(reg.NewConfig("", nil), deps)
	require.NoError(t, err)

	assert.Equal(t, StateReady, inst.Initialize(context.Background()))
	assert.NotEmpty(t, inst.ID())
}
