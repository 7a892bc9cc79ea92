// Package composer implements the "create post" screen: the draft state, the
// handlers that mutate it, the submission workflow and the view of the draft.
//
// A Form is owned by one draft. Every handler mutates the state under the
// form's lock, then re-renders explicitly through the Renderer. The only
// asynchronous operation is Submit, which blocks until the Publisher returns.
package composer

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eringen/shortpost/views"
)

var (
	// ErrNotVideo is returned when the selected file is not a video.
	ErrNotVideo = errors.New("composer: a video file is required")
	// ErrMissingFields is returned when submit is requested without a video or caption.
	ErrMissingFields = errors.New("composer: video and caption are required")
	// ErrSubmitInFlight is returned when an action is attempted while a
	// submission is running.
	ErrSubmitInFlight = errors.New("composer: submission in progress")
	// ErrPublish wraps every failure reported by the Publisher.
	ErrPublish = errors.New("composer: publish failed")
)

// User-visible notice texts.
const (
	MsgVideoRequired  = "Please choose a video file."
	MsgFieldsRequired = "Please add both a video and a caption."
	MsgPosted         = "Your video was posted!"
	MsgPostFailed     = "Something went wrong while uploading: "
	MsgPreviewFailed  = "Could not prepare a preview for this video."
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notice is a message shown to the user.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Navigator asks the host to leave this screen for another tab.
type Navigator interface {
	Navigate(tab Tab)
}

// Renderer receives the fresh view after every mutation.
type Renderer interface {
	Rendered(state State, view *views.Node)
}

// PreviewStore creates and releases preview handles for selected files.
// Open reads the file content back through a live handle.
type PreviewStore interface {
	Create(file *File) (Handle, error)
	Open(h Handle) (io.ReadCloser, error)
	Release(h Handle) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (fn NotifierFunc) Notify(n Notice) { fn(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Tab)

// Navigate implements Navigator.
func (fn NavigatorFunc) Navigate(tab Tab) { fn(tab) }

// RendererFunc adapts a function to Renderer.
type RendererFunc func(State, *views.Node)

// Rendered implements Renderer.
func (fn RendererFunc) Rendered(s State, v *views.Node) { fn(s, v) }

type nopHost struct{}

func (nopHost) Notify(Notice)               {}
func (nopHost) Navigate(Tab)                {}
func (nopHost) Rendered(State, *views.Node) {}

// Option configures a Form.
type Option func(*Form)

// WithNotifier sets where notices go.
func WithNotifier(n Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

// WithNavigator sets where navigation signals go.
func WithNavigator(n Navigator) Option {
	return func(f *Form) { f.navigator = n }
}

// WithRenderer sets the hook that receives every re-render.
func WithRenderer(r Renderer) Option {
	return func(f *Form) { f.renderer = r }
}

// WithUserID sets the acting user the upload is keyed by.
func WithUserID(id string) Option {
	return func(f *Form) { f.userID = id }
}

// WithLogger sets the form's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Form) { f.log = l }
}

// WithID names the draft in logs and progress events.
func WithID(id string) Option {
	return func(f *Form) { f.id = id }
}

// Form is the UploadForm component.
type Form struct {
	id        string
	userID    string
	publisher Publisher
	previews  PreviewStore
	notifier  Notifier
	navigator Navigator
	renderer  Renderer
	log       zerolog.Logger

	mu       sync.Mutex
	state    State
	inflight *Submission
}

// New mounts a form with the default state.
func New(publisher Publisher, previews PreviewStore, opts ...Option) *Form {
	f := &Form{
		publisher: publisher,
		previews:  previews,
		notifier:  nopHost{},
		navigator: nopHost{},
		renderer:  nopHost{},
		log:       zerolog.Nop(),
		state:     DefaultState(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With().Str("draft", f.id).Logger()
	return f
}

// ID returns the draft id given with WithID.
func (f *Form) ID() string {
	return f.id
}

// State returns a copy of the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// View renders the current state.
func (f *Form) View() *views.Node {
	return Render(f.State())
}

// update applies fn under the lock and re-renders the result.
func (f *Form) update(fn func(s *State)) State {
	f.mu.Lock()
	fn(&f.state)
	snap := f.state.clone()
	f.mu.Unlock()
	f.render(snap)
	return snap
}

func (f *Form) render(s State) {
	f.renderer.Rendered(s, Render(s))
}

// SelectFile accepts a video file for the draft. Anything that is not a video
// is rejected as a whole and the draft is left untouched.
func (f *Form) SelectFile(file *File) error {
	if !file.IsVideo() {
		f.log.Debug().Str("media_type", mediaType(file)).Msg("rejected non-video file")
		f.notifier.Notify(Notice{Level: LevelWarning, Message: MsgVideoRequired})
		return ErrNotVideo
	}
	if f.busy() {
		return ErrSubmitInFlight
	}

	h, err := f.previews.Create(file)
	if err != nil {
		f.log.Error().Err(err).Str("file", file.Name).Msg("create preview")
		f.notifier.Notify(Notice{Level: LevelError, Message: MsgPreviewFailed})
		return fmt.Errorf("create preview: %w", err)
	}
	stored := &File{
		Name:      file.Name,
		MediaType: file.MediaType,
		Size:      file.Size,
		Open:      func() (io.ReadCloser, error) { return f.previews.Open(h) },
	}

	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		f.release(h)
		return ErrSubmitInFlight
	}
	old := f.state.Preview
	f.state.File = stored
	f.state.Preview = h
	snap := f.state.clone()
	f.mu.Unlock()

	f.release(old)
	f.render(snap)
	f.log.Info().Str("file", file.Name).Int64("size", file.Size).Str("preview", h.ID).Msg("video selected")
	return nil
}

// RemoveVideo drops the selected file and releases its preview.
func (f *Form) RemoveVideo() error {
	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	old := f.state.Preview
	f.state.File = nil
	f.state.Preview = Handle{}
	snap := f.state.clone()
	f.mu.Unlock()

	f.release(old)
	f.render(snap)
	return nil
}

// SetCaption replaces the caption and recomputes the hashtags from it.
func (f *Form) SetCaption(text string) {
	f.update(func(s *State) {
		s.Caption = text
		s.Hashtags = ExtractHashtags(text)
	})
}

// TogglePrivacy switches between public and private.
func (f *Form) TogglePrivacy() {
	f.update(func(s *State) { s.Privacy = s.Privacy.Toggle() })
}

// ToggleComments flips whether comments are allowed.
func (f *Form) ToggleComments() {
	f.update(func(s *State) { s.AllowComments = !s.AllowComments })
}

// ToggleDuet flips whether duets are allowed.
func (f *Form) ToggleDuet() {
	f.update(func(s *State) { s.AllowDuet = !s.AllowDuet })
}

// Cancel discards the draft: the preview is released and the host is sent back
// to the home tab. A running submission cannot be cancelled.
func (f *Form) Cancel() error {
	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	old := f.state.Preview
	f.state.Preview = Handle{}
	f.state.File = nil
	f.mu.Unlock()

	f.release(old)
	f.navigator.Navigate(TabHome)
	return nil
}

// Discard releases the draft's preview without navigating. Hosts call it when
// they evict a draft the user abandoned.
func (f *Form) Discard() {
	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return
	}
	old := f.state.Preview
	f.state.Preview = Handle{}
	f.state.File = nil
	f.mu.Unlock()
	f.release(old)
}

func (f *Form) busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Submitting
}

func (f *Form) release(h Handle) {
	if h.IsZero() {
		return
	}
	if err := f.previews.Release(h); err != nil {
		f.log.Warn().Err(err).Str("preview", h.ID).Msg("release preview")
	}
}

func mediaType(file *File) string {
	if file == nil {
		return ""
	}
	return file.MediaType
}
