package widget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/eventbus"
	"github.com/milodocs/pagekit/storage"
)

const widgetPage = `<!DOCTYPE html>
<html>
<head><title>Widget page</title></head>
<body>
  <button id="theme-toggle"></button>
  <nav data-collapse-group>
    <section data-collapse-section="getting-started"><h4>Getting started</h4></section>
    <section data-collapse-section="reference"><h4>Reference</h4></section>
  </nav>
  <div data-tabs="install">
    <button data-tab="linux">Linux</button>
    <button data-tab="macos">macOS</button>
    <div data-tab-panel="linux">apt install</div>
    <div data-tab-panel="macos">brew install</div>
  </div>
  <div data-clipboard>
    <button data-copy-target="snippet-1">Copy</button>
  </div>
  <pre id="snippet-1">echo hello</pre>
  <aside data-toc></aside>
  <article>
    <h2 id="intro">Introduction</h2>
    <h3 id="setup">Setup</h3>
    <h2 id="usage">Usage</h2>
    <h2>Unlinkable</h2>
  </article>
</body>
</html>`

type env struct {
	doc   *dom.Document
	bus   *eventbus.Bus
	store storage.Store
	deps  component.Dependencies
}

func newEnv(t *testing.T, src string) *env {
	t.Helper()
	doc, err := dom.ParseString(src)
	require.NoError(t, err)

	e := &env{
		doc:   doc,
		bus:   eventbus.New(nil),
		store: storage.NewMemory(),
	}
	e.deps = component.Dependencies{
		Document: doc,
		Bus:      e.bus,
		Store:    e.store,
	}
	return e
}

// build registers, creates, and initializes one widget directly against the
// registry, without a manager.
func build(t *testing.T, e *env, register func(*component.Registry) error, name string) component.Component {
	t.Helper()
	registry := component.NewRegistry(nil)
	require.NoError(t, register(registry))

	reg, ok := registry.Lookup(name)
	require.True(t, ok)

	inst, err := reg.Factory(reg.NewConfig("", nil), e.deps)
	require.NoError(t, err)
	require.Equal(t, component.StateReady, inst.Initialize(context.Background()))
	t.Cleanup(inst.Destroy)
	return inst
}

func TestThemeToggle(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterThemeToggle, "theme-toggle")
	toggle := inst.(*ThemeToggle)

	require.Equal(t, ThemeLight, toggle.Theme())
	assert.False(t, e.doc.Root().HasClass("dark"))

	toggle.Element().Click()

	assert.Equal(t, ThemeDark, toggle.Theme())
	assert.True(t, e.doc.Root().HasClass("dark"))
	stored, err := e.store.Get(context.Background(), themeStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(stored))

	toggle.Element().Click()
	assert.Equal(t, ThemeLight, toggle.Theme())
	assert.False(t, e.doc.Root().HasClass("dark"))
	stored, err = e.store.Get(context.Background(), themeStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "light", string(stored))
}

func TestThemeToggleRestoresStoredPreference(t *testing.T) {
	e := newEnv(t, widgetPage)
	require.NoError(t, e.store.Put(context.Background(), themeStorageKey, []byte("dark")))

	inst := build(t, e, RegisterThemeToggle, "theme-toggle")
	assert.Equal(t, ThemeDark, inst.(*ThemeToggle).Theme())
	assert.True(t, e.doc.Root().HasClass("dark"))
}

func TestThemeToggleIgnoresMalformedPreference(t *testing.T) {
	e := newEnv(t, widgetPage)
	require.NoError(t, e.store.Put(context.Background(), themeStorageKey, []byte("sepia")))

	inst := build(t, e, RegisterThemeToggle, "theme-toggle")
	assert.Equal(t, ThemeLight, inst.(*ThemeToggle).Theme())
}

// failingStore rejects every write, simulating disabled or full storage.
type failingStore struct{ storage.Store }

func (f *failingStore) Put(ctx context.Context, key string, value []byte) error {
	return assert.AnError
}

func TestThemeToggleSurvivesStorageFault(t *testing.T) {
	e := newEnv(t, widgetPage)
	e.deps.Store = storage.NewFallback(&failingStore{Store: storage.NewMemory()}, nil)

	inst := build(t, e, RegisterThemeToggle, "theme-toggle")
	toggle := inst.(*ThemeToggle)

	// The toggle keeps working; persistence degrades to the in-memory
	// shadow without surfacing the fault.
	toggle.Element().Click()
	assert.Equal(t, ThemeDark, toggle.Theme())
	assert.True(t, e.doc.Root().HasClass("dark"))
}

func TestCollapseTogglePersists(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterCollapse, "collapse")
	collapse := inst.(*Collapse)

	require.False(t, collapse.Collapsed("getting-started"))

	section, err := e.doc.QuerySelector("[data-collapse-section=getting-started]")
	require.NoError(t, err)
	section.Click()
	assert.True(t, collapse.Collapsed("getting-started"))
	assert.False(t, collapse.Collapsed("reference"))

	var state CollapseState
	require.NoError(t, storage.GetJSON(context.Background(), e.store, "collapse:getting-started", &state))
	assert.True(t, state.Collapsed)
	assert.Equal(t, "getting-started", state.View)
	assert.False(t, state.Timestamp.IsZero())
}

func TestCollapseRestoresState(t *testing.T) {
	e := newEnv(t, widgetPage)
	require.NoError(t, storage.PutJSON(context.Background(), e.store, "collapse:reference",
		CollapseState{View: "reference", Collapsed: true}))

	inst := build(t, e, RegisterCollapse, "collapse")
	collapse := inst.(*Collapse)
	assert.True(t, collapse.Collapsed("reference"))
	assert.False(t, collapse.Collapsed("getting-started"))
}

func TestTabsSelectFirstByDefault(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterTabs, "tabs")
	tabs := inst.(*Tabs)

	assert.Equal(t, "linux", tabs.Selected())

	panel, err := e.doc.QuerySelector("[data-tab-panel=macos]")
	require.NoError(t, err)
	assert.True(t, panel.HasClass("hidden"))
}

func TestTabsClickPersistsSelection(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterTabs, "tabs")
	tabs := inst.(*Tabs)

	btn, err := e.doc.QuerySelector("[data-tab=macos]")
	require.NoError(t, err)
	btn.Click()

	assert.Equal(t, "macos", tabs.Selected())
	stored, err := e.store.Get(context.Background(), "tabs:install")
	require.NoError(t, err)
	assert.Equal(t, "macos", string(stored))

	panel, err := e.doc.QuerySelector("[data-tab-panel=linux]")
	require.NoError(t, err)
	assert.True(t, panel.HasClass("hidden"))
}

func TestTabsRestoresSelection(t *testing.T) {
	e := newEnv(t, widgetPage)
	require.NoError(t, e.store.Put(context.Background(), "tabs:install", []byte("macos")))

	inst := build(t, e, RegisterTabs, "tabs")
	assert.Equal(t, "macos", inst.(*Tabs).Selected())
}

func TestClipboardCopy(t *testing.T) {
	e := newEnv(t, widgetPage)
	build(t, e, RegisterClipboard, "clipboard")

	var copied map[string]string
	e.bus.On(eventbus.ComponentChannel("clipboard", "copied"), func(ev eventbus.Event) {
		copied = ev.Payload.(map[string]string)
	})

	btn, err := e.doc.QuerySelector("[data-copy-target]")
	require.NoError(t, err)
	btn.Click()

	require.NotNil(t, copied)
	assert.Equal(t, "snippet-1", copied["target"])
	assert.Equal(t, "echo hello", copied["text"])
	assert.Equal(t, "true", btn.Attr("data-copied"))
}

func TestTOCBuildsOutline(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterTOC, "toc")
	toc := inst.(*TOC)

	entries := toc.Entries()
	require.Len(t, entries, 3) // the id-less heading is skipped
	assert.Equal(t, "intro", entries[0].ID)
	assert.Equal(t, 2, entries[0].Level)

	// Outline rendered into the toc element.
	links, err := toc.Element().QuerySelectorAll("[data-toc-entry]")
	require.NoError(t, err)
	assert.Len(t, links, 3)
}

func TestTOCActivation(t *testing.T) {
	e := newEnv(t, widgetPage)
	inst := build(t, e, RegisterTOC, "toc")
	toc := inst.(*TOC)

	link, err := toc.Element().QuerySelector("[data-toc-entry=usage]")
	require.NoError(t, err)
	link.Click()
	assert.Equal(t, "usage", toc.Active())

	other, err := toc.Element().QuerySelector("[data-toc-entry=intro]")
	require.NoError(t, err)
	other.Click()
	assert.Equal(t, "intro", toc.Active())
}

func TestRegisterAll(t *testing.T) {
	registry := component.NewRegistry(nil)
	require.NoError(t, Register(registry, Services{}))

	names := registry.Names()
	assert.Contains(t, names, "theme-toggle")
	assert.Contains(t, names, "collapse")
	assert.Contains(t, names, "tabs")
	assert.Contains(t, names, "clipboard")
	assert.Contains(t, names, "toc")
	// Service-backed widgets skipped without their backends.
	assert.NotContains(t, names, "chat")
	assert.NotContains(t, names, "search")
}

func TestRegisterNilRegistry(t *testing.T) {
	require.Error(t, Register(nil, Services{}))
}
