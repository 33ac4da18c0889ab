// Package dom provides the parsed-document model the pagekit runtime operates
// on. It wraps the golang.org/x/net/html node tree with element lookup by a
// small CSS selector subset, attribute and class manipulation, per-element
// event listeners scoped to a context, and mutation records delivered to
// observers.
//
// The model mirrors the parts of a live browser document the component
// framework needs and nothing more: there is no layout, no styling, and no
// script execution. All operations on one Document are safe for concurrent
// use; a single mutex serializes access the way the browser's event loop
// serializes DOM access.
//
// Listener bookkeeping: every element carrying at least one listener also
// carries a "data-pk-listeners" attribute with the current listener count.
// The component manager's cache-restore sweep cross-checks this attribute
// against its own records to detect state that desynced from the document.
package dom
