package composer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Progress checkpoints reported by Publish.
const (
	ProgressStarted  = 30
	ProgressUploaded = 80
	ProgressDone     = 100
)

// UploadResult is where the stored media ended up.
type UploadResult struct {
	URL string
}

// CreatePostRequest is the post record written after the upload.
type CreatePostRequest struct {
	UserID        string
	VideoURL      string
	Description   string
	Hashtags      []string
	IsPrivate     bool
	AllowComments bool
	AllowDuet     bool
}

// Post is a stored video post.
type Post struct {
	ID            string
	UserID        string
	VideoURL      string
	Description   string
	Hashtags      []string
	IsPrivate     bool
	AllowComments bool
	AllowDuet     bool
	CreatedAt     time.Time
}

// Publisher is the upload and persistence service behind the form.
type Publisher interface {
	UploadVideo(ctx context.Context, file *File, userID string) (UploadResult, error)
	CreateVideoPost(ctx context.Context, req CreatePostRequest) (Post, error)
}

// Submission is the request-scoped context of one submit: its id, a snapshot
// of the draft and the progress callback. It is handed to the Publisher
// through the context and detached once the workflow returns, after which
// progress reports are dropped.
type Submission struct {
	ID      string
	File    *File
	Request CreatePostRequest

	progress func(id string, percent int)
	detached atomic.Bool
}

// NewSubmission snapshots s into a submission for userID.
func NewSubmission(userID string, s State, progress func(id string, percent int)) *Submission {
	return &Submission{
		ID:   uuid.NewString(),
		File: s.File,
		Request: CreatePostRequest{
			UserID:        userID,
			Description:   s.Caption,
			Hashtags:      append([]string{}, s.Hashtags...),
			IsPrivate:     s.Privacy.IsPrivate(),
			AllowComments: s.AllowComments,
			AllowDuet:     s.AllowDuet,
		},
		progress: progress,
	}
}

// Report forwards a progress value unless the submission is detached.
func (s *Submission) Report(percent int) {
	if s == nil || s.progress == nil || s.detached.Load() {
		return
	}
	s.progress(s.ID, percent)
}

// Detach stops further progress reports.
func (s *Submission) Detach() {
	s.detached.Store(true)
}

type submissionKey struct{}

// WithSubmission attaches sub to ctx.
func WithSubmission(ctx context.Context, sub *Submission) context.Context {
	return context.WithValue(ctx, submissionKey{}, sub)
}

// SubmissionFrom returns the submission attached to ctx, if any.
func SubmissionFrom(ctx context.Context) (*Submission, bool) {
	sub, ok := ctx.Value(submissionKey{}).(*Submission)
	return sub, ok
}

type hostKey struct{}

type callHost struct {
	notifier  Notifier
	navigator Navigator
}

// WithHost routes the notices and navigation of the call that receives ctx
// to n and nav instead of the form's own host.
func WithHost(ctx context.Context, n Notifier, nav Navigator) context.Context {
	return context.WithValue(ctx, hostKey{}, callHost{notifier: n, navigator: nav})
}

func (f *Form) hostFor(ctx context.Context) (Notifier, Navigator) {
	n, nav := f.notifier, f.navigator
	if h, ok := ctx.Value(hostKey{}).(callHost); ok {
		if h.notifier != nil {
			n = h.notifier
		}
		if h.navigator != nil {
			nav = h.navigator
		}
	}
	return n, nav
}

// Publish runs the two collaborator steps for sub: upload the file, then
// create the post that references it. A failure in either step fails the
// whole submission.
func Publish(ctx context.Context, p Publisher, sub *Submission) (Post, error) {
	ctx = WithSubmission(ctx, sub)

	sub.Report(ProgressStarted)
	uploaded, err := p.UploadVideo(ctx, sub.File, sub.Request.UserID)
	if err != nil {
		return Post{}, fmt.Errorf("upload video: %w", err)
	}
	sub.Report(ProgressUploaded)

	req := sub.Request
	req.VideoURL = uploaded.URL
	post, err := p.CreateVideoPost(ctx, req)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	sub.Report(ProgressDone)
	return post, nil
}

// Submit publishes the draft. It refuses to start without a video and a
// caption, or while another submission is running. On success the draft is
// reset and the host is sent to the home tab; on failure the draft is kept so
// the user can retry. Either way the submitting flag and progress are cleared.
func (f *Form) Submit(ctx context.Context) error {
	notifier, navigator := f.hostFor(ctx)
	f.mu.Lock()
	if f.state.Submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if !f.state.CanSubmit() {
		f.mu.Unlock()
		notifier.Notify(Notice{Level: LevelWarning, Message: MsgFieldsRequired})
		return ErrMissingFields
	}
	sub := NewSubmission(f.userID, f.state, f.onProgress)
	f.inflight = sub
	f.state.Submitting = true
	f.state.Progress = 0
	snap := f.state.clone()
	f.mu.Unlock()
	f.render(snap)

	log := f.log.With().Str("submission", sub.ID).Str("user", f.userID).Logger()
	log.Info().Int("hashtags", len(sub.Request.Hashtags)).Bool("private", sub.Request.IsPrivate).Msg("submission started")

	post, err := f.publish(ctx, sub)
	sub.Detach()

	f.mu.Lock()
	f.inflight = nil
	f.state.Submitting = false
	f.state.Progress = 0
	var old Handle
	if err == nil {
		old = f.state.Preview
		f.state = DefaultState()
	}
	snap = f.state.clone()
	f.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("submission failed")
		f.render(snap)
		notifier.Notify(Notice{Level: LevelError, Message: MsgPostFailed + err.Error()})
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	f.release(old)
	f.render(snap)
	log.Info().Str("post", post.ID).Msg("submission published")
	notifier.Notify(Notice{Level: LevelSuccess, Message: MsgPosted})
	navigator.Navigate(TabHome)
	return nil
}

// publish runs Publish and turns a panic inside the collaborator into an error.
func (f *Form) publish(ctx context.Context, sub *Submission) (post Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()
	return Publish(ctx, f.publisher, sub)
}

// onProgress applies a progress value if it belongs to the running submission.
func (f *Form) onProgress(id string, percent int) {
	f.mu.Lock()
	if f.inflight == nil || f.inflight.ID != id || !f.state.Submitting {
		f.mu.Unlock()
		return
	}
	f.state.Progress = clampPercent(percent)
	snap := f.state.clone()
	f.mu.Unlock()
	f.render(snap)
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
