package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
)

// TOCEntry is one heading in the generated outline.
type TOCEntry struct {
	ID    string
	Text  string
	Level int // 2 for h2, 3 for h3
}

// TOC builds a table of contents from the page's headings and tracks the
// active entry as anchors are activated.
type TOC struct {
	*component.Base
	activeClass string
	entries     []TOCEntry
	links       []*dom.Element
}

// RegisterTOC adds the table-of-contents descriptor to a registry.
func RegisterTOC(reg *component.Registry) error {
	return reg.Register(&component.Registration{
		Name:        "toc",
		Description: "Heading outline with active-entry tracking",
		Selector:    "[data-toc]",
		DefaultOptions: map[string]any{
			"activeClass": "active",
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"activeClass": {"type": "string"}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &TOC{}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

// SetupElements collects the page's h2/h3 headings and renders the outline
// into the toc element. Headings without ids are skipped; they cannot be
// linked.
func (w *TOC) SetupElements(ctx context.Context) error {
	w.activeClass = component.GetString(w.Options(), "activeClass", "active")

	doc := w.Deps().Document
	for _, tag := range []string{"h2", "h3"} {
		headings, err := doc.QuerySelectorAll(tag)
		if err != nil {
			return err
		}
		level := 2
		if tag == "h3" {
			level = 3
		}
		for _, h := range headings {
			if h.ID() == "" {
				continue
			}
			w.entries = append(w.entries, TOCEntry{ID: h.ID(), Text: h.Text(), Level: level})
		}
	}

	list := doc.CreateElement("ul")
	for _, entry := range w.entries {
		item := doc.CreateElement("li")
		link := doc.CreateElement("a")
		link.SetAttr("href", "#"+entry.ID)
		link.SetAttr("data-toc-entry", entry.ID)
		if entry.Level == 3 {
			item.AddClass("toc-sub")
		}
		link.SetText(entry.Text)
		item.AppendChild(link)
		list.AppendChild(item)
		w.links = append(w.links, link)
	}
	w.Element().AppendChild(list)
	return nil
}

func (w *TOC) BindEvents(ctx context.Context) error {
	for _, link := range w.links {
		id := link.Attr("data-toc-entry")
		w.Listen(link, "click", func(*dom.UIEvent) {
			w.Activate(id)
		})
	}
	return nil
}

func (w *TOC) OnInit(ctx context.Context) error { return nil }

// Activate marks the entry for the given heading id as the active one.
func (w *TOC) Activate(id string) {
	for _, link := range w.links {
		if link.Attr("data-toc-entry") == id {
			link.AddClass(w.activeClass)
		} else {
			link.RemoveClass(w.activeClass)
		}
	}
	w.Emit("activated", map[string]string{"id": id})
}

// Entries returns the generated outline.
func (w *TOC) Entries() []TOCEntry { return w.entries }

// Active returns the currently active heading id, or "".
func (w *TOC) Active() string {
	for _, link := range w.links {
		if link.HasClass(w.activeClass) {
			return link.Attr("data-toc-entry")
		}
	}
	return ""
}
