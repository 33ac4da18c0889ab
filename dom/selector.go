package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/milodocs/pagekit/errors"
)

// selector is a parsed CSS selector restricted to the subset the runtime
// needs: tag, #id, .class, [attr], [attr=value], compounds of those, and the
// descendant combinator.
type selector struct {
	raw   string
	parts []compound // left to right; last part matches the candidate itself
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrCond
}

type attrCond struct {
	key      string
	value    string
	hasValue bool
}

// IsSingletonSelector reports whether a selector can match at most one
// element page-wide. Only id selectors qualify; this is the uniform identity
// rule for singleton duplicate suppression.
func IsSingletonSelector(sel string) bool {
	sel = strings.TrimSpace(sel)
	return strings.HasPrefix(sel, "#") && !strings.ContainsAny(sel, " >~+")
}

func parseSelector(raw string) (*selector, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "empty selector")
	}
	if strings.ContainsAny(trimmed, ">~+,:") {
		// Combinators beyond descendant and pseudo-classes are out of scope.
		return nil, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "unsupported selector syntax")
	}

	fields := strings.Fields(trimmed)
	parts := make([]compound, 0, len(fields))
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}
	return &selector{raw: raw, parts: parts}, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	for i < len(s) {
		switch s[i] {
		case '#':
			j := simpleEnd(s, i+1)
			if j == i+1 {
				return c, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "empty id")
			}
			c.id = s[i+1 : j]
			i = j
		case '.':
			j := simpleEnd(s, i+1)
			if j == i+1 {
				return c, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "empty class")
			}
			c.classes = append(c.classes, s[i+1:j])
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "unterminated attribute")
			}
			body := s[i+1 : i+end]
			if key, value, found := strings.Cut(body, "="); found {
				value = strings.Trim(value, `"'`)
				c.attrs = append(c.attrs, attrCond{key: key, value: value, hasValue: true})
			} else {
				c.attrs = append(c.attrs, attrCond{key: body})
			}
			i += end + 1
		default:
			j := simpleEnd(s, i)
			if j == i {
				return c, errors.WrapInvalid(errors.ErrInvalidSelector, "Selector", "Parse", "bad selector character")
			}
			c.tag = strings.ToLower(s[i:j])
			i = j
		}
	}
	return c, nil
}

// simpleEnd returns the index after a run of identifier characters starting
// at i.
func simpleEnd(s string, i int) int {
	for i < len(s) {
		ch := s[i]
		if ch == '#' || ch == '.' || ch == '[' {
			break
		}
		i++
	}
	return i
}

// matches reports whether the node satisfies the full selector, checking
// ancestor chains for descendant parts.
func (sel *selector) matches(n *html.Node) bool {
	last := len(sel.parts) - 1
	if !sel.parts[last].matches(n) {
		return false
	}

	// Remaining parts must match some chain of ancestors, right to left.
	ancestor := n.Parent
	for i := last - 1; i >= 0; i-- {
		for {
			if ancestor == nil {
				return false
			}
			if ancestor.Type == html.ElementNode && sel.parts[i].matches(ancestor) {
				ancestor = ancestor.Parent
				break
			}
			ancestor = ancestor.Parent
		}
	}
	return true
}

func (c compound) matches(n *html.Node) bool {
	if c.tag != "" && c.tag != strings.ToLower(n.Data) {
		return false
	}
	if c.id != "" && attrValue(n, "id") != c.id {
		return false
	}
	for _, class := range c.classes {
		if !hasClass(n, class) {
			return false
		}
	}
	for _, cond := range c.attrs {
		val, ok := lookupAttr(n, cond.key)
		if !ok {
			return false
		}
		if cond.hasValue && val != cond.value {
			return false
		}
	}
	return true
}

func attrValue(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}
