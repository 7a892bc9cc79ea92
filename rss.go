package shortpost

import (
	"encoding/xml"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shortpost/composer"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	Description string       `xml:"description"`
	PubDate     string       `xml:"pubDate"`
	GUID        rssGUID      `xml:"guid"`
	Enclosure   rssEnclosure `xml:"enclosure"`
	Categories  []string     `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// rssTitle is the first line of the caption, shortened for feed readers.
func rssTitle(description string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	if r := []rune(title); len(r) > 80 {
		title = string(r[:79]) + "…"
	}
	return title
}

func (a *App) renderRSS(c echo.Context, posts []composer.Post) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		videoURL := AbsoluteURL(base, p.VideoURL)
		mediaType := VideoMediaType("", path.Base(p.VideoURL))
		if mediaType == "" {
			mediaType = "video/mp4"
		}
		items = append(items, rssItem{
			Title:       rssTitle(p.Description),
			Link:        videoURL,
			Description: p.Description,
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			GUID:        rssGUID{Value: p.ID},
			// length is unknown after upload; 0 is the accepted placeholder
			Enclosure:  rssEnclosure{URL: videoURL, Type: mediaType},
			Categories: p.Hashtags,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
