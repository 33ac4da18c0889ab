package dom

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/milodocs/pagekit/errors"
)

// AttrListeners is the bookkeeping attribute the dom layer maintains on every
// element that has at least one registered listener. Its value is the current
// listener count.
const AttrListeners = "data-pk-listeners"

// Document is a mutable HTML document. All methods are safe for concurrent
// use.
type Document struct {
	mu   sync.Mutex
	root *html.Node

	// Per-node runtime state (listeners). Keyed by node identity so element
	// wrappers stay cheap value objects.
	state map[*html.Node]*nodeState

	// Mutation observers.
	observers []*Observer
	obsSeq    int
}

type nodeState struct {
	listeners []*listener
	nextID    uint64
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "Document", "Parse", "html parse")
	}
	return &Document{
		root:  root,
		state: make(map[*html.Node]*nodeState),
	}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render serializes the document back to HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := html.Render(w, d.root); err != nil {
		return errors.Wrap(err, "Document", "Render", "html render")
	}
	return nil
}

// HTML returns the serialized document.
func (d *Document) HTML() string {
	var sb strings.Builder
	_ = d.Render(&sb)
	return sb.String()
}

// Root returns the root element (the <html> element if present).
func (d *Document) Root() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return &Element{doc: d, node: n}
		}
	}
	return &Element{doc: d, node: d.root}
}

// Body returns the <body> element, or nil if the document has none.
func (d *Document) Body() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if n == nil {
		return nil
	}
	return &Element{doc: d, node: n}
}

// QuerySelector returns the first element matching the selector, or nil.
func (d *Document) QuerySelector(selector string) (*Element, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	n := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && sel.matches(n)
	})
	if n == nil {
		return nil, nil
	}
	return &Element{doc: d, node: n}, nil
}

// QuerySelectorAll returns every element matching the selector in document
// order.
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && sel.matches(n) {
			out = append(out, &Element{doc: d, node: n})
		}
	})
	return out, nil
}

// ElementsWithAttr returns every element carrying the given attribute, in
// document order. This is the discovery-scan primitive: the manager asks for
// all elements with the marker attribute in one pass.
func (d *Document) ElementsWithAttr(attr string) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	walk(d.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, a := range n.Attr {
			if a.Key == attr {
				out = append(out, &Element{doc: d, node: n})
				return
			}
		}
	})
	return out
}

// CreateElement creates a detached element. It joins the document tree (and
// becomes discoverable) once appended to an attached parent.
func (d *Document) CreateElement(tag string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return &Element{doc: d, node: n}
}

// Contains reports whether the element is currently attached to this
// document's tree. Elements removed from the tree (or never appended) are not
// contained; the manager's cache-restore sweep uses this to find orphaned
// instances.
func (d *Document) Contains(el *Element) bool {
	if el == nil || el.doc != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for n := el.node; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// listenerCountAttr reads the bookkeeping attribute as an int, 0 if absent or
// malformed.
func listenerCountAttr(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == AttrListeners {
			count, err := strconv.Atoi(a.Val)
			if err != nil {
				return 0
			}
			return count
		}
	}
	return 0
}

// findFirst returns the first node (preorder) satisfying pred.
func findFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, pred); n != nil {
			return n
		}
	}
	return nil
}

// walk visits every node in preorder.
func walk(root *html.Node, visit func(*html.Node)) {
	visit(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
