package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Element is a handle to one element node in a Document. Handles are cheap
// value objects; two handles refer to the same element when Equal reports
// true.
type Element struct {
	doc  *Document
	node *html.Node
}

// Equal reports whether both handles refer to the same underlying node.
func (e *Element) Equal(other *Element) bool {
	return e != nil && other != nil && e.node == other.node
}

// Document returns the owning document.
func (e *Element) Document() *Document {
	return e.doc
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	return e.Attr("id")
}

// Attr returns the value of an attribute, or "" if absent.
func (e *Element) Attr(key string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(key string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.node.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets an attribute and notifies mutation observers.
func (e *Element) SetAttr(key, value string) {
	e.doc.mu.Lock()
	e.setAttrLocked(key, value)
	e.doc.mu.Unlock()
	e.doc.notify(MutationRecord{Type: MutationAttribute, Target: e, Attr: key})
}

func (e *Element) setAttrLocked(key, value string) {
	for i, a := range e.node.Attr {
		if a.Key == key {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr removes an attribute and notifies mutation observers. Removing
// an absent attribute is a no-op.
func (e *Element) RemoveAttr(key string) {
	e.doc.mu.Lock()
	removed := false
	for i, a := range e.node.Attr {
		if a.Key == key {
			e.node.Attr = slices.Delete(e.node.Attr, i, i+1)
			removed = true
			break
		}
	}
	e.doc.mu.Unlock()
	if removed {
		e.doc.notify(MutationRecord{Type: MutationAttribute, Target: e, Attr: key})
	}
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(strings.Fields(e.Attr("class")), name)
}

// AddClass adds a class if not already present.
func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	current := e.Attr("class")
	if current == "" {
		e.SetAttr("class", name)
		return
	}
	e.SetAttr("class", current+" "+name)
}

// RemoveClass removes a class if present.
func (e *Element) RemoveClass(name string) {
	fields := strings.Fields(e.Attr("class"))
	kept := fields[:0]
	for _, f := range fields {
		if f != name {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(fields) {
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds the class if absent, removes it if present, and returns
// whether it is now present.
func (e *Element) ToggleClass(name string) bool {
	if e.HasClass(name) {
		e.RemoveClass(name)
		return false
	}
	e.AddClass(name)
	return true
}

// Text returns the concatenated text content of the element's subtree.
func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var sb strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}

// SetText replaces the element's children with a single text node.
func (e *Element) SetText(text string) {
	e.doc.mu.Lock()
	for e.node.FirstChild != nil {
		e.node.RemoveChild(e.node.FirstChild)
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	e.doc.mu.Unlock()
	e.doc.notify(MutationRecord{Type: MutationChildList, Target: e})
}

// AppendChild attaches a child element and notifies mutation observers.
func (e *Element) AppendChild(child *Element) {
	e.doc.mu.Lock()
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
	e.doc.mu.Unlock()
	e.doc.notify(MutationRecord{Type: MutationChildList, Target: e, Added: []*Element{child}})
}

// Remove detaches the element from its parent and notifies mutation
// observers. Detached elements keep their subtree and can be re-appended.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	parentNode := e.node.Parent
	if parentNode != nil {
		parentNode.RemoveChild(e.node)
	}
	e.doc.mu.Unlock()
	if parentNode != nil {
		parent := &Element{doc: e.doc, node: parentNode}
		e.doc.notify(MutationRecord{Type: MutationChildList, Target: parent, Removed: []*Element{e}})
	}
}

// Parent returns the parent element, or nil at the tree root.
func (e *Element) Parent() *Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return &Element{doc: e.doc, node: p}
}

// Children returns the element's child elements in order.
func (e *Element) Children() []*Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{doc: e.doc, node: c})
		}
	}
	return out
}

// QuerySelector returns the first descendant matching the selector, or nil.
func (e *Element) QuerySelector(selector string) (*Element, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var found *html.Node
	for c := e.node.FirstChild; c != nil && found == nil; c = c.NextSibling {
		found = findFirst(c, func(n *html.Node) bool {
			return n.Type == html.ElementNode && sel.matches(n)
		})
	}
	if found == nil {
		return nil, nil
	}
	return &Element{doc: e.doc, node: found}, nil
}

// QuerySelectorAll returns every descendant matching the selector.
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) {
			if n.Type == html.ElementNode && sel.matches(n) {
				out = append(out, &Element{doc: e.doc, node: n})
			}
		})
	}
	return out, nil
}
