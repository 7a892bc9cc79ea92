package composer

import (
	"io"
	"strings"
)

// Privacy is the audience of a post.
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// Toggle flips between the two privacy values. Anything that is not private
// is treated as public.
func (p Privacy) Toggle() Privacy {
	if p == PrivacyPublic {
		return PrivacyPrivate
	}
	return PrivacyPublic
}

// IsPrivate reports whether p restricts the post to its author.
func (p Privacy) IsPrivate() bool {
	return p == PrivacyPrivate
}

// Tab identifies a top-level screen of the host application.
type Tab string

const (
	TabHome   Tab = "home"
	TabUpload Tab = "upload"
)

// File is a locally selected media file. Open must be callable more than once.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// IsVideo reports whether the declared media category is video.
func (f *File) IsVideo() bool {
	if f == nil {
		return false
	}
	mt := strings.ToLower(strings.TrimSpace(f.MediaType))
	return strings.HasPrefix(mt, "video/")
}

// Handle is a revocable reference that lets the browser play the selected file
// before it is uploaded.
type Handle struct {
	ID  string
	URL string
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// State is the draft being composed. Only Form's handlers mutate it.
type State struct {
	File          *File
	Preview       Handle
	Caption       string
	Hashtags      []string
	Privacy       Privacy
	AllowComments bool
	AllowDuet     bool
	Submitting    bool
	Progress      int
}

// DefaultState is the state of a freshly mounted form.
func DefaultState() State {
	return State{
		Hashtags:      []string{},
		Privacy:       PrivacyPublic,
		AllowComments: true,
		AllowDuet:     true,
	}
}

// HasCaption reports whether the caption holds non-whitespace content.
func (s State) HasCaption() bool {
	return strings.TrimSpace(s.Caption) != ""
}

// CanSubmit reports whether the submit action is enabled.
func (s State) CanSubmit() bool {
	return s.File != nil && s.HasCaption() && !s.Submitting
}

func (s State) clone() State {
	out := s
	out.Hashtags = append([]string{}, s.Hashtags...)
	return out
}
