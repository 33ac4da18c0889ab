package widget

import (
	"context"
	"encoding/json"
	"time"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/storage"
)

// CollapseState is the persisted record for one collapsible section.
type CollapseState struct {
	View      string    `json:"view"`
	Collapsed bool      `json:"collapsed"`
	Timestamp time.Time `json:"timestamp"`
}

// Collapse manages a group of collapsible sections. Each section element
// carries data-collapse-section naming it; the collapsed flag is persisted
// per section.
type Collapse struct {
	*component.Base
	ctx            context.Context
	collapsedClass string
	sections       []*dom.Element
}

// RegisterCollapse adds the collapse descriptor to a registry.
func RegisterCollapse(reg *component.Registry) error {
	return reg.Register(&component.Registration{
		Name:        "collapse",
		Description: "Collapsible section group with persisted per-section state",
		Selector:    "[data-collapse-group]",
		DefaultOptions: map[string]any{
			"collapsedClass": "collapsed",
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"collapsedClass": {"type": "string"}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &Collapse{}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

func (w *Collapse) SetupElements(ctx context.Context) error {
	w.ctx = ctx
	w.collapsedClass = component.GetString(w.Options(), "collapsedClass", "collapsed")

	sections, err := w.Element().QuerySelectorAll("[data-collapse-section]")
	if err != nil {
		return err
	}
	w.sections = sections
	return nil
}

func (w *Collapse) BindEvents(ctx context.Context) error {
	for _, section := range w.sections {
		section := section
		w.Listen(section, "click", func(*dom.UIEvent) {
			w.toggle(section)
		})
	}
	return nil
}

// OnInit restores each section's persisted collapsed flag. Absent or
// malformed records leave the section expanded.
func (w *Collapse) OnInit(ctx context.Context) error {
	store := w.Deps().Store
	for _, section := range w.sections {
		name := section.Attr("data-collapse-section")
		if store == nil || name == "" {
			continue
		}
		var state CollapseState
		if err := storage.GetJSON(ctx, store, w.stateKey(name), &state); err != nil {
			continue
		}
		if state.Collapsed {
			section.AddClass(w.collapsedClass)
		}
	}
	return nil
}

// toggle flips a section and persists the new state.
func (w *Collapse) toggle(section *dom.Element) {
	collapsed := section.ToggleClass(w.collapsedClass)
	name := section.Attr("data-collapse-section")

	if store := w.Deps().Store; store != nil && name != "" {
		state := CollapseState{View: name, Collapsed: collapsed, Timestamp: time.Now()}
		if err := storage.PutJSON(w.ctx, store, w.stateKey(name), state); err != nil {
			w.Logger().Warn("collapse state not persisted", "section", name, "error", err)
		}
	}
	w.Emit("toggled", map[string]any{"section": name, "collapsed": collapsed})
}

// Collapsed reports whether a named section is currently collapsed.
func (w *Collapse) Collapsed(name string) bool {
	for _, section := range w.sections {
		if section.Attr("data-collapse-section") == name {
			return section.HasClass(w.collapsedClass)
		}
	}
	return false
}

func (w *Collapse) stateKey(name string) string {
	return "collapse:" + name
}
