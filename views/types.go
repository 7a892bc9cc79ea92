// Package views holds the UI tree the screens render into and the helpers that
// turn a tree into HTML. Screens build trees with El and Text; the host writes
// them with Component, which satisfies templ.Component.
package views

// Kind discriminates element nodes from text nodes.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
)

// Attrs holds element attributes. String values are written as-is (escaped),
// bool values are written as bare attributes when true and omitted when false.
type Attrs map[string]any

// Node is one element or text node of a rendered screen.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    Attrs
	Children []*Node
	Text     string
}

// SiteConfig carries the site-wide values every page layout needs.
type SiteConfig struct {
	Name        string // SITE_NAME  (default "shortpost")
	URL         string // SITE_URL   (default "http://localhost:3000")
	Description string // SITE_DESCRIPTION
}

// PageMeta carries per-page title and canonical URL into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string
	CSRFToken   string // read by app.js for POST requests
}
