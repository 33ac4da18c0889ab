package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
)

// Tabs manages one tab group: buttons carry data-tab naming a panel, panels
// carry data-tab-panel with the same name. The selected tab is persisted per
// group.
type Tabs struct {
	*component.Base
	ctx         context.Context
	activeClass string
	hiddenClass string
	group       string
	buttons     []*dom.Element
	panels      []*dom.Element
}

// RegisterTabs adds the tabs descriptor to a registry.
func RegisterTabs(reg *component.Registry) error {
	return reg.Register(&component.Registration{
		Name:        "tabs",
		Description: "Tab group with persisted selection",
		Selector:    "[data-tabs]",
		DefaultOptions: map[string]any{
			"activeClass": "active",
			"hiddenClass": "hidden",
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"activeClass": {"type": "string"},
				"hiddenClass": {"type": "string"}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &Tabs{}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

func (w *Tabs) SetupElements(ctx context.Context) error {
	w.ctx = ctx
	w.activeClass = component.GetString(w.Options(), "activeClass", "active")
	w.hiddenClass = component.GetString(w.Options(), "hiddenClass", "hidden")
	w.group = w.Element().Attr("data-tabs")

	var err error
	if w.buttons, err = w.Element().QuerySelectorAll("[data-tab]"); err != nil {
		return err
	}
	if w.panels, err = w.Element().QuerySelectorAll("[data-tab-panel]"); err != nil {
		return err
	}
	return nil
}

func (w *Tabs) BindEvents(ctx context.Context) error {
	for _, btn := range w.buttons {
		name := btn.Attr("data-tab")
		w.Listen(btn, "click", func(*dom.UIEvent) {
			w.Select(name, true)
		})
	}
	return nil
}

// OnInit restores the persisted selection, falling back to the first tab.
func (w *Tabs) OnInit(ctx context.Context) error {
	selected := ""
	if store := w.Deps().Store; store != nil && w.group != "" {
		if data, err := store.Get(ctx, w.stateKey()); err == nil {
			selected = string(data)
		}
	}
	if selected == "" || !w.hasTab(selected) {
		if len(w.buttons) == 0 {
			return nil
		}
		selected = w.buttons[0].Attr("data-tab")
	}
	w.Select(selected, false)
	return nil
}

// Select activates a named tab, hides the other panels, and optionally
// persists the choice.
func (w *Tabs) Select(name string, persist bool) {
	for _, btn := range w.buttons {
		if btn.Attr("data-tab") == name {
			btn.AddClass(w.activeClass)
		} else {
			btn.RemoveClass(w.activeClass)
		}
	}
	for _, panel := range w.panels {
		if panel.Attr("data-tab-panel") == name {
			panel.RemoveClass(w.hiddenClass)
		} else {
			panel.AddClass(w.hiddenClass)
		}
	}

	if persist {
		if store := w.Deps().Store; store != nil && w.group != "" {
			if err := store.Put(w.ctx, w.stateKey(), []byte(name)); err != nil {
				w.Logger().Warn("tab selection not persisted", "group", w.group, "error", err)
			}
		}
		w.Emit("selected", map[string]string{"group": w.group, "tab": name})
	}
}

// Selected returns the active tab name, or "".
func (w *Tabs) Selected() string {
	for _, btn := range w.buttons {
		if btn.HasClass(w.activeClass) {
			return btn.Attr("data-tab")
		}
	}
	return ""
}

func (w *Tabs) hasTab(name string) bool {
	for _, btn := range w.buttons {
		if btn.Attr("data-tab") == name {
			return true
		}
	}
	return false
}

func (w *Tabs) stateKey() string {
	return "tabs:" + w.group
}
