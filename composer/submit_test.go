package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyForm(t *testing.T, pub *stubPublisher) (*Form, *memPreviews, *host) {
	t.Helper()
	f, previews, h := newTestForm(pub)
	require.NoError(t, f.SelectFile(videoFile("clip.mp4")))
	f.SetCaption("first post #Go #서울")
	f.TogglePrivacy()
	f.ToggleDuet()
	return f, previews, h
}

func TestSubmitSuccessResetsFormAndNavigatesHome(t *testing.T) {
	pub := &stubPublisher{}
	f, previews, h := readyForm(t, pub)

	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, DefaultState(), f.State())
	assert.Equal(t, 1, previews.releases("p1"), "preview released exactly once")
	assert.Equal(t, []Tab{TabHome}, h.tabs, "navigated home exactly once")
	require.NotEmpty(t, h.notices)
	assert.Equal(t, Notice{Level: LevelSuccess, Message: MsgPosted}, h.notices[len(h.notices)-1])

	require.Len(t, pub.requests, 1)
	req := pub.requests[0]
	assert.Equal(t, "test-user-1", req.UserID)
	assert.Equal(t, "https://media.example/test-user-1/clip.mp4", req.VideoURL)
	assert.Equal(t, "first post #Go #서울", req.Description)
	assert.Equal(t, []string{"Go", "서울"}, req.Hashtags)
	assert.True(t, req.IsPrivate)
	assert.True(t, req.AllowComments)
	assert.False(t, req.AllowDuet)
	assert.Equal(t, "video-bytes:clip.mp4", string(pub.uploadData))
}

func TestSubmitReportsProgressCheckpoints(t *testing.T) {
	f, _, h := readyForm(t, &stubPublisher{})

	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, []int{ProgressStarted, ProgressUploaded, ProgressDone}, h.progress)
	last := h.renders[len(h.renders)-1]
	assert.False(t, last.Submitting)
	assert.Zero(t, last.Progress)
}

func TestSubmitRendersSubmittingState(t *testing.T) {
	f, _, h := readyForm(t, &stubPublisher{})
	before := h.renderCount()

	require.NoError(t, f.Submit(context.Background()))

	first := h.renders[before]
	assert.True(t, first.Submitting)
	assert.Zero(t, first.Progress)
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	for name, pub := range map[string]*stubPublisher{
		"upload fails": {uploadErr: errors.New("storage unavailable")},
		"create fails": {createErr: errors.New("insert rejected")},
		"panics":       {panicWith: "boom"},
	} {
		t.Run(name, func(t *testing.T) {
			f, previews, h := readyForm(t, pub)
			before := f.State()

			err := f.Submit(context.Background())
			require.ErrorIs(t, err, ErrPublish)

			after := f.State()
			assert.Same(t, before.File, after.File)
			assert.Equal(t, before.Preview, after.Preview)
			assert.Equal(t, before.Caption, after.Caption)
			assert.Equal(t, before.Hashtags, after.Hashtags)
			assert.Equal(t, before.Privacy, after.Privacy)
			assert.Equal(t, before.AllowComments, after.AllowComments)
			assert.Equal(t, before.AllowDuet, after.AllowDuet)
			assert.False(t, after.Submitting)
			assert.Zero(t, after.Progress)

			assert.Zero(t, previews.totalReleases())
			assert.Empty(t, h.tabs)
			last := h.notices[len(h.notices)-1]
			assert.Equal(t, LevelError, last.Level)
			assert.Contains(t, last.Message, MsgPostFailed)
		})
	}
}

func TestSubmitFailureAllowsRetry(t *testing.T) {
	pub := &stubPublisher{createErr: errors.New("timeout")}
	f, previews, h := readyForm(t, pub)

	require.Error(t, f.Submit(context.Background()))
	pub.createErr = nil
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, DefaultState(), f.State())
	assert.Equal(t, 1, previews.releases("p1"))
	assert.Equal(t, []Tab{TabHome}, h.tabs)
}

func TestSubmitRequiresFileAndCaption(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		pub := &stubPublisher{}
		f, _, h := newTestForm(pub)
		f.SetCaption("caption only")
		renders := h.renderCount()

		require.ErrorIs(t, f.Submit(context.Background()), ErrMissingFields)
		assert.Equal(t, renders, h.renderCount())
		assert.Empty(t, pub.uploaded)
		assert.Equal(t, MsgFieldsRequired, h.notices[len(h.notices)-1].Message)
	})
	t.Run("blank caption", func(t *testing.T) {
		pub := &stubPublisher{}
		f, _, _ := newTestForm(pub)
		require.NoError(t, f.SelectFile(videoFile("a.mp4")))
		f.SetCaption("   \n\t")

		require.ErrorIs(t, f.Submit(context.Background()), ErrMissingFields)
		assert.Empty(t, pub.uploaded)
		assert.False(t, f.State().Submitting)
	})
}

func TestSubmitBlocksSecondSubmissionAndEdits(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	pub := &stubPublisher{onUpload: func(ctx context.Context) {
		close(entered)
		<-unblock
	}}
	f, previews, h := readyForm(t, pub)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-entered

	assert.True(t, f.State().Submitting)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrSubmitInFlight)
	assert.ErrorIs(t, f.SelectFile(videoFile("other.mp4")), ErrSubmitInFlight)
	assert.ErrorIs(t, f.RemoveVideo(), ErrSubmitInFlight)
	assert.ErrorIs(t, f.Cancel(), ErrSubmitInFlight)
	assert.True(t, Render(f.State()).Find(IDSubmit).Disabled())

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, 1, previews.totalReleases())
	assert.Equal(t, []Tab{TabHome}, h.tabs)
	assert.Len(t, pub.uploaded, 1)
}

func TestSubmissionTravelsInContext(t *testing.T) {
	var seen *Submission
	pub := &stubPublisher{onUpload: func(ctx context.Context) {
		seen, _ = SubmissionFrom(ctx)
	}}
	f, _, _ := readyForm(t, pub)

	require.NoError(t, f.Submit(context.Background()))
	require.NotNil(t, seen)
	assert.NotEmpty(t, seen.ID)
	assert.Equal(t, "test-user-1", seen.Request.UserID)
}

func TestLateProgressIsDropped(t *testing.T) {
	var leaked *Submission
	pub := &stubPublisher{onUpload: func(ctx context.Context) {
		leaked, _ = SubmissionFrom(ctx)
	}}
	f, _, h := readyForm(t, pub)
	require.NoError(t, f.Submit(context.Background()))
	renders := h.renderCount()

	leaked.Report(55)
	f.onProgress(leaked.ID, 55)

	assert.Zero(t, f.State().Progress)
	assert.Equal(t, renders, h.renderCount())
}

func TestProgressIsClamped(t *testing.T) {
	assert.Equal(t, 0, clampPercent(-5))
	assert.Equal(t, 42, clampPercent(42))
	assert.Equal(t, 100, clampPercent(250))
}

func TestPublishStopsAfterUploadFailure(t *testing.T) {
	pub := &stubPublisher{uploadErr: errors.New("403")}
	var reported []int
	sub := NewSubmission("u1", State{File: videoFile("a.mp4"), Caption: "x", Privacy: PrivacyPublic}, func(_ string, p int) {
		reported = append(reported, p)
	})

	_, err := Publish(context.Background(), pub, sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload video")
	assert.Equal(t, []int{ProgressStarted}, reported)
	assert.Empty(t, pub.requests)
}

func TestNewSubmissionSnapshotsDraft(t *testing.T) {
	s := State{File: videoFile("a.mp4"), Caption: "#x", Hashtags: []string{"x"}, Privacy: Privacy("friends"), AllowComments: false, AllowDuet: true}
	sub := NewSubmission("u1", s, nil)
	s.Hashtags[0] = "changed"

	assert.Equal(t, []string{"x"}, sub.Request.Hashtags)
	assert.False(t, sub.Request.IsPrivate, "unknown privacy is public")
	assert.False(t, sub.Request.AllowComments)
	assert.True(t, sub.Request.AllowDuet)
	sub.Report(10)
}

func TestSubmitSignalsGoToCallHost(t *testing.T) {
	f, _, formHost := readyForm(t, &stubPublisher{})
	call := &host{}

	require.NoError(t, f.Submit(WithHost(context.Background(), call, call)))

	assert.Equal(t, []Tab{TabHome}, call.tabs)
	assert.Equal(t, []Notice{{Level: LevelSuccess, Message: MsgPosted}}, call.notices)
	assert.Empty(t, formHost.tabs)
	assert.Empty(t, formHost.notices)
}

func TestSubmitFailureNoticeGoesToCallHost(t *testing.T) {
	f, _, formHost := readyForm(t, &stubPublisher{createErr: errors.New("db down")})
	call := &host{}

	err := f.Submit(WithHost(context.Background(), call, nil))
	require.ErrorIs(t, err, ErrPublish)

	require.Len(t, call.notices, 1)
	assert.Equal(t, LevelError, call.notices[0].Level)
	assert.Empty(t, formHost.notices)
}
