package views

import (
	"net/url"
	"path"
	"strings"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// ChipClass returns CSS classes for a hashtag chip, with active variant.
func ChipClass(active bool) string {
	return Classes("chip", If(active, "chip-active"))
}

// HashtagLabel formats a tag for display with its marker.
func HashtagLabel(tag string) string {
	return "#" + tag
}

// Page wraps body in the shared document layout: head metadata, stylesheet and
// the client script that wires toasts, redirects and progress events.
func Page(cfg SiteConfig, meta PageMeta, body ...*Node) *Node {
	title := cfg.Name
	if meta.Title != "" {
		title = meta.Title + " · " + cfg.Name
	}
	description := meta.Description
	if description == "" {
		description = cfg.Description
	}
	canonical := meta.URL
	if canonical == "" {
		canonical = buildURL(cfg.URL)
	}
	return El("html", Attrs{"lang": "en"},
		El("head", nil,
			El("meta", Attrs{"charset": "utf-8"}),
			El("meta", Attrs{"name": "viewport", "content": "width=device-width, initial-scale=1, viewport-fit=cover"}),
			El("title", nil, Text(title)),
			When(description != "", func() *Node {
				return El("meta", Attrs{"name": "description", "content": description})
			}),
			El("link", Attrs{"rel": "canonical", "href": canonical}),
			When(meta.CSRFToken != "", func() *Node {
				return El("meta", Attrs{"name": "csrf-token", "content": meta.CSRFToken})
			}),
			El("link", Attrs{"rel": "stylesheet", "href": "/public/app.css"}),
			El("script", Attrs{"src": "/public/app.js", "defer": true}),
		),
		El("body", nil, body...),
	)
}
