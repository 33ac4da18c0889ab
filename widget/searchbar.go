package widget

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/component"
	"github.com/milodocs/pagekit/dom"
	"github.com/milodocs/pagekit/search"
)

// SearchBar runs site search queries against the full-text index and renders
// the ranked result list.
type SearchBar struct {
	*component.Base
	ctx     context.Context
	index   *search.Index
	results *dom.Element
	limit   int
}

// RegisterSearchBar adds the search descriptor to a registry. The index is
// shared across instances.
func RegisterSearchBar(reg *component.Registry, index *search.Index) error {
	return reg.Register(&component.Registration{
		Name:        "search",
		Description: "Site search box over the full-text index",
		Selector:    "#search",
		DefaultOptions: map[string]any{
			"maxResults": 10,
		},
		OptionsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"maxResults": {"type": "integer", "minimum": 1}
			}
		}`),
		Factory: func(cfg component.Config, deps component.Dependencies) (component.Component, error) {
			w := &SearchBar{index: index}
			w.Base = component.NewBase(cfg, deps, w)
			return w, nil
		},
	})
}

// SetupElements locates or creates the result list container.
func (w *SearchBar) SetupElements(ctx context.Context) error {
	w.ctx = ctx
	w.limit = component.GetInt(w.Options(), "maxResults", 10)

	results, err := w.Element().QuerySelector("[data-search-results]")
	if err != nil {
		return err
	}
	if results == nil {
		results = w.Deps().Document.CreateElement("ul")
		results.SetAttr("data-search-results", "")
		w.Element().AppendChild(results)
	}
	w.results = results
	return nil
}

func (w *SearchBar) BindEvents(ctx context.Context) error {
	// Queries arrive as synthetic "query" events carrying the search text.
	w.Listen(w.Element(), "query", func(ev *dom.UIEvent) {
		if q, ok := ev.Payload.(string); ok {
			w.Query(q)
		}
	})
	return nil
}

func (w *SearchBar) OnInit(ctx context.Context) error { return nil }

// Query searches the index and replaces the rendered result list.
func (w *SearchBar) Query(q string) []search.Result {
	hits, err := w.index.Search(w.ctx, q, "")
	if err != nil {
		w.Logger().Warn("search query failed", "query", q, "error", err)
		return nil
	}
	if len(hits) > w.limit {
		hits = hits[:w.limit]
	}
	w.render(hits)
	w.Emit("results", map[string]any{"query": q, "count": len(hits)})
	return hits
}

func (w *SearchBar) render(hits []search.Result) {
	for _, child := range w.results.Children() {
		child.Remove()
	}

	doc := w.Deps().Document
	for _, hit := range hits {
		item := doc.CreateElement("li")
		link := doc.CreateElement("a")
		link.SetAttr("href", hit.ID)
		link.SetText(hit.Title)
		item.AppendChild(link)
		if hit.Description != "" {
			desc := doc.CreateElement("p")
			desc.SetText(hit.Description)
			item.AppendChild(desc)
		}
		w.results.AppendChild(item)
	}
}
