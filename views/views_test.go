package views

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, n *Node) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTML(n)))
	require.NoError(t, err)
	return doc
}

func TestRenderEscapesTextAndAttributes(t *testing.T) {
	n := Div(Attrs{"title": `"quoted" <b>`, "hidden": true, "draggable": false},
		Text("<script>alert(1)</script>"))
	out := HTML(n)

	assert.Equal(t, `<div hidden title="&#34;quoted&#34; &lt;b&gt;">&lt;script&gt;alert(1)&lt;/script&gt;</div>`, out)
}

func TestVoidElementsHaveNoClosingTag(t *testing.T) {
	out := HTML(El("p", nil, El("input", Attrs{"type": "file"}), El("br", nil)))
	assert.Equal(t, `<p><input type="file"><br></p>`, out)
}

func TestFindAndClasses(t *testing.T) {
	tree := Div(nil,
		Span(Attrs{"id": "a", "class": Classes("chip", If(true, "on"), If(false, "off"))}, Text("x")),
		When(false, func() *Node { return Span(Attrs{"id": "never"}) }),
		Button(Attrs{"id": "b", "disabled": true}, Text("go")),
	)

	require.NotNil(t, tree.Find("a"))
	assert.True(t, tree.Find("a").HasClass("on"))
	assert.False(t, tree.Find("a").HasClass("off"))
	assert.Nil(t, tree.Find("never"))
	assert.True(t, tree.Find("b").Disabled())
	assert.Equal(t, "xgo", tree.TextContent())
	assert.Len(t, tree.FindAll(ByClass("chip")), 1)
}

func TestPageCarriesCSRFToken(t *testing.T) {
	site := SiteConfig{Name: "shortpost", URL: "http://localhost:3000"}
	doc := parse(t, Page(site, PageMeta{Title: "New post", CSRFToken: "tok"}))

	assert.Equal(t, "New post · shortpost", doc.Find("title").Text())
	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
	assert.Equal(t, 1, doc.Find(`script[src="/public/app.js"]`).Length())
}

func TestHomePage(t *testing.T) {
	site := SiteConfig{Name: "shortpost"}
	items := []FeedItem{{
		ID:          "p1",
		VideoURL:    "/public/videos/u/a.mp4",
		Description: "hello #서울",
		Hashtags:    []string{"서울"},
		CreatedAt:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}}
	doc := parse(t, HomePage(site, PageMeta{}, items, "서울", []string{"go", "서울"}))

	assert.Equal(t, 1, doc.Find("li.post").Length())
	src, _ := doc.Find("li.post video").Attr("src")
	assert.Equal(t, "/public/videos/u/a.mp4", src)
	assert.Equal(t, "#서울", doc.Find(".tag-bar .chip-active").Text())
	assert.Equal(t, "Mar 9, 2024", doc.Find("li.post time").Text())
	assert.True(t, doc.Find("nav .tab-active").Is(`a[href="/"]`))

	empty := parse(t, HomePage(site, PageMeta{}, nil, "", nil))
	assert.Equal(t, "No videos yet.", empty.Find(".feed-empty").Text())
	assert.Zero(t, empty.Find(".tag-bar").Length())
}
