package views

import "strings"

// El builds an element node. Nil children are skipped so callers can inline
// conditional sections with When.
func El(tag string, attrs Attrs, children ...*Node) *Node {
	n := &Node{Kind: KindElement, Tag: tag, Attrs: attrs}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Text builds a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// When returns n if cond holds and nil otherwise.
func When(cond bool, n func() *Node) *Node {
	if !cond {
		return nil
	}
	return n()
}

// Div, Span, Button and Label are shorthands for the elements screens use most.
func Div(attrs Attrs, children ...*Node) *Node    { return El("div", attrs, children...) }
func Span(attrs Attrs, children ...*Node) *Node   { return El("span", attrs, children...) }
func Button(attrs Attrs, children ...*Node) *Node { return El("button", attrs, children...) }
func Label(attrs Attrs, children ...*Node) *Node  { return El("label", attrs, children...) }

// Attr returns the attribute value for key, or nil when unset.
func (n *Node) Attr(key string) any {
	if n == nil || n.Attrs == nil {
		return nil
	}
	return n.Attrs[key]
}

// AttrString returns the attribute as a string, or "" when unset or not a string.
func (n *Node) AttrString(key string) string {
	s, _ := n.Attr(key).(string)
	return s
}

// Disabled reports whether the node carries a true "disabled" attribute.
func (n *Node) Disabled() bool {
	b, _ := n.Attr("disabled").(bool)
	return b
}

// HasClass reports whether class appears in the node's class list.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.AttrString("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// TextContent concatenates every text node below n.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindText {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first element with the given id.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindElement && c.AttrString("id") == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element matching match, in document order.
func (n *Node) FindAll(match func(*Node) bool) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindElement && match(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// ByClass matches elements carrying class.
func ByClass(class string) func(*Node) bool {
	return func(n *Node) bool { return n.HasClass(class) }
}

// Classes joins the non-empty class names in order.
//
//	views.Classes("switch", views.If(on, "is-on"))
func Classes(names ...string) string {
	return strings.Join(FilterEmpty(names), " ")
}

// If returns s when cond holds and "" otherwise.
func If(cond bool, s string) string {
	if cond {
		return s
	}
	return ""
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
