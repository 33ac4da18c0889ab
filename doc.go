// Package pagekit is a server-side behavior runtime for documentation
// sites. It takes the rendered HTML a static site generator produced,
// discovers the component markers the templates left behind, and runs a
// managed component lifecycle over the document before the page is served.
//
// # Architecture
//
// The runtime is built from small packages that compose bottom-up:
//
//   - dom: an HTML document model with selector queries, synthetic events,
//     and mutation observation over parsed pages.
//   - eventbus: channel-addressed publish/subscribe connecting components
//     without direct references.
//   - component: the component contract, the registration catalog, and the
//     Base lifecycle (Initialize, SetupElements, BindEvents, OnInit,
//     Destroy).
//   - manager: discovery of marked elements, instance identity and
//     deduplication, reactive discovery from document mutations, and
//     teardown.
//   - widget: the built-in components (theme toggle, collapse sections,
//     tabs, clipboard, table of contents, chat, search).
//   - storage: the preference store (memory or SQLite, with a memory
//     fallback on backend faults).
//   - askdocs: clients for the assistant services and the embeddings
//     indexer the assistant answers from.
//   - search: the bleve-backed site search index.
//   - bootstrap: assembles one runtime around one page from configuration.
//   - server: the HTTP surface serving enhanced pages and the runtime APIs.
//
// # Usage
//
// Most callers go through bootstrap:
//
//	cfg, _ := config.Load("pagekit.yml")
//	rt, err := bootstrap.New(ctx, cfg, pageHTML, bootstrap.Options{})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//	rt.Start(ctx)
//	rt.Document.Render(w)
//
// The pagekit command wraps this into a server (pagekit serve), a one-shot
// page renderer (pagekit render), and an embeddings index builder
// (pagekit index).
package pagekit
