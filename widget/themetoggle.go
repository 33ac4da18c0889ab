// Package widget implements the interactive page components shipped with
// pagekit: theme toggling, collapsible sections, tab groups, copy buttons,
// the table of contents, the documentation chat, and the search box. All are
// registered through Register.
package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
)

// Theme values persisted by the theme toggle.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

const themeStorageKey = "pref-theme"

// ThemeToggle switches the site between dark and light themes and persists
// the choice.
type ThemeToggle struct {
	*component.Base
	ctx       context.Context
	darkClass string
	current   string
}

// RegisterThemeToggle adds the theme-toggle descriptor to a registry.
func RegisterThemeToggle(reg *component.Registry) error {
	return reg.Register(&component.Registration{
		Name:        "theme-toggle",
		Description: "Dark/light theme switcher with persisted preference",
		Selector:    "#theme-toggle",
		DefaultOptions: map[string]any{
			"darkClass":    "dark",
			"defaultTheme": ThemeLight,
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"darkClass":    {"type": "string"},
				"defaultTheme": {"type": "string", "enum": ["dark", "light"]}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &ThemeToggle{}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

func (w *ThemeToggle) SetupElements(ctx context.Context) error {
	w.ctx = ctx
	w.darkClass = component.GetString(w.Options(), "darkClass", "dark")
	return nil
}

func (w *ThemeToggle) BindEvents(ctx context.Context) error {
	w.Listen(w.Element(), "click", func(*dom.UIEvent) {
		w.Toggle()
	})
	return nil
}

func (w *ThemeToggle) OnInit(ctx context.Context) error {
	theme := component.GetString(w.Options(), "defaultTheme", ThemeLight)
	if store := w.Deps().Store; store != nil {
		if data, err := store.Get(ctx, themeStorageKey); err == nil {
			if s := string(data); s == ThemeDark || s == ThemeLight {
				theme = s
			}
			// Malformed values fall back to the default.
		}
	}
	w.apply(theme)
	return nil
}

// Toggle flips the theme, persists the new value, and announces the change.
func (w *ThemeToggle) Toggle() {
	next := ThemeDark
	if w.current == ThemeDark {
		next = ThemeLight
	}
	w.apply(next)

	if store := w.Deps().Store; store != nil {
		if err := store.Put(w.ctx, themeStorageKey, []byte(next)); err != nil {
			// Preference persistence is best effort.
			w.Logger().Warn("theme preference not persisted", "error", err)
		}
	}
	w.Emit("changed", map[string]string{"theme": next})
}

// Theme returns the currently applied theme.
func (w *ThemeToggle) Theme() string { return w.current }

func (w *ThemeToggle) apply(theme string) {
	w.current = theme
	root := w.Deps().Document.Root()
	if root == nil {
		return
	}
	if theme == ThemeDark {
		root.AddClass(w.darkClass)
	} else {
		root.RemoveClass(w.darkClass)
	}
}
