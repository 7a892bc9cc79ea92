package views

import (
	"net/url"
	"time"
)

// FeedItem is one post on the home feed.
type FeedItem struct {
	ID          string
	VideoURL    string
	Description string
	Hashtags    []string
	CreatedAt   time.Time
}

func navBar(active string) *Node {
	link := func(href, label, name string) *Node {
		return El("a", Attrs{"href": href, "class": Classes("tab", If(active == name, "tab-active"))}, Text(label))
	}
	return El("nav", Attrs{"class": "tabs"},
		link("/", "Home", "home"),
		link("/upload/", "Upload", "upload"),
	)
}

func toastRegion() *Node {
	return Div(Attrs{"id": "toasts", "class": "toasts", "aria-live": "polite"})
}

// HomePage is the feed of public posts, optionally narrowed to one hashtag.
func HomePage(site SiteConfig, meta PageMeta, items []FeedItem, activeTag string, tags []string) *Node {
	return Page(site, meta,
		navBar("home"),
		El("main", Attrs{"class": "feed"},
			tagBar(activeTag, tags),
			When(len(items) == 0, func() *Node {
				return El("p", Attrs{"class": "feed-empty"}, Text("No videos yet."))
			}),
			When(len(items) > 0, func() *Node {
				list := El("ul", Attrs{"class": "feed-list"})
				for _, it := range items {
					list.Children = append(list.Children, feedItem(it))
				}
				return list
			}),
		),
		toastRegion(),
	)
}

func tagBar(activeTag string, tags []string) *Node {
	if len(tags) == 0 {
		return nil
	}
	bar := Div(Attrs{"class": "tag-bar"},
		El("a", Attrs{"href": "/", "class": ChipClass(activeTag == "")}, Text("All")),
	)
	for _, t := range tags {
		bar.Children = append(bar.Children,
			El("a", Attrs{"href": "/?tag=" + url.QueryEscape(t), "class": ChipClass(t == activeTag)}, Text(HashtagLabel(t))))
	}
	return bar
}

func feedItem(it FeedItem) *Node {
	chips := Div(Attrs{"class": "post-tags"})
	for _, t := range it.Hashtags {
		chips.Children = append(chips.Children,
			El("a", Attrs{"href": "/?tag=" + url.QueryEscape(t), "class": "chip"}, Text(HashtagLabel(t))))
	}
	return El("li", Attrs{"class": "post", "id": "post-" + it.ID},
		El("video", Attrs{"src": it.VideoURL, "controls": true, "playsinline": true, "preload": "metadata"}),
		El("p", Attrs{"class": "post-caption"}, Text(it.Description)),
		When(len(it.Hashtags) > 0, func() *Node { return chips }),
		El("time", Attrs{"datetime": it.CreatedAt.UTC().Format(time.RFC3339)}, Text(it.CreatedAt.UTC().Format("Jan 2, 2006"))),
	)
}

// UploadPage hosts the composer fragment.
func UploadPage(site SiteConfig, meta PageMeta, composer *Node) *Node {
	return Page(site, meta,
		navBar("upload"),
		El("main", Attrs{"class": "upload", "data-progress": "/upload/progress/"}, composer),
		toastRegion(),
	)
}

// NotFoundPage is rendered for unknown routes.
func NotFoundPage(site SiteConfig) *Node {
	return Page(site, PageMeta{Title: "Not found"},
		navBar(""),
		El("main", Attrs{"class": "error"},
			El("h1", nil, Text("Page not found")),
			El("a", Attrs{"href": "/"}, Text("Back to the feed")),
		),
	)
}

// ServerErrorPage is rendered for unexpected failures.
func ServerErrorPage(site SiteConfig) *Node {
	return Page(site, PageMeta{Title: "Error"},
		navBar(""),
		El("main", Attrs{"class": "error"},
			El("h1", nil, Text("Something went wrong")),
			El("a", Attrs{"href": "/"}, Text("Back to the feed")),
		),
	)
}
