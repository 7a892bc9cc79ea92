package shortpost

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/eringen/shortpost/composer"
	"github.com/eringen/shortpost/views"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
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

// AbsoluteURL resolves ref (a path or an absolute URL) against base.
func AbsoluteURL(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// TabPath is the page a navigation signal leads to.
func TabPath(tab composer.Tab) string {
	switch tab {
	case composer.TabUpload:
		return "/upload/"
	default:
		return "/"
	}
}

// VideoMediaType returns the declared media type of an uploaded file, falling
// back to the extension when the browser sent none or a generic one.
func VideoMediaType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return declared
}

// videoTypes covers the containers phones record; the stdlib table has none.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".3gp":  "video/3gpp",
	".ogv":  "video/ogg",
}

type toastPayload struct {
	Level   composer.Level `json:"level"`
	Message string         `json:"message"`
}

// ToastTrigger encodes notices as an HX-Trigger header value. Non-ASCII
// characters are escaped so the header stays 7-bit.
func ToastTrigger(notices []composer.Notice) (string, error) {
	toasts := make([]toastPayload, len(notices))
	for i, n := range notices {
		toasts[i] = toastPayload{Level: n.Level, Message: n.Message}
	}
	b, err := json.Marshal(map[string][]toastPayload{"toast": toasts})
	if err != nil {
		return "", err
	}
	return asciiJSON(b), nil
}

func asciiJSON(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r > 0xFFFF:
			r -= 0x10000
			fmt.Fprintf(&sb, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String()
}

func feedItems(posts []composer.Post) []views.FeedItem {
	items := make([]views.FeedItem, len(posts))
	for i, p := range posts {
		items[i] = views.FeedItem{
			ID:          p.ID,
			VideoURL:    p.VideoURL,
			Description: p.Description,
			Hashtags:    p.Hashtags,
			CreatedAt:   p.CreatedAt,
		}
	}
	return items
}
