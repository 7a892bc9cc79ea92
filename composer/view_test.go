package composer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/shortpost/views"
)

func TestSubmitButtonEnabledOnlyWhenReady(t *testing.T) {
	for _, hasFile := range []bool{false, true} {
		for _, hasCaption := range []bool{false, true} {
			for _, submitting := range []bool{false, true} {
				name := fmt.Sprintf("file=%v caption=%v submitting=%v", hasFile, hasCaption, submitting)
				t.Run(name, func(t *testing.T) {
					s := DefaultState()
					if hasFile {
						s.File = videoFile("a.mp4")
						s.Preview = Handle{ID: "p1", URL: "/preview/p1/"}
					}
					if hasCaption {
						s.Caption = "hello"
					} else {
						s.Caption = "   "
					}
					s.Submitting = submitting

					want := hasFile && hasCaption && !submitting
					assert.Equal(t, want, s.CanSubmit())

					btn := Render(s).Find(IDSubmit)
					require.NotNil(t, btn)
					assert.Equal(t, !want, btn.Disabled())
					if submitting {
						assert.Equal(t, LabelPosting, btn.TextContent())
					} else {
						assert.Equal(t, LabelPost, btn.TextContent())
					}
				})
			}
		}
	}
}

func TestRenderShowsUploadPromptWithoutFile(t *testing.T) {
	tree := Render(DefaultState())

	require.NotNil(t, tree.Find(IDPrompt))
	input := tree.Find(IDFile)
	require.NotNil(t, input)
	assert.Equal(t, "video/*", input.AttrString("accept"))
	assert.Nil(t, tree.Find(IDPreview))
	assert.Nil(t, tree.Find(IDRemove))
}

func TestRenderShowsPreviewWithRemove(t *testing.T) {
	s := DefaultState()
	s.File = videoFile("a.mp4")
	s.Preview = Handle{ID: "p9", URL: "/preview/p9/"}
	tree := Render(s)

	assert.Nil(t, tree.Find(IDPrompt))
	video := tree.Find(IDPreview)
	require.NotNil(t, video)
	assert.Equal(t, "/preview/p9/", video.AttrString("src"))
	assert.Equal(t, true, video.Attr("controls"))
	assert.NotNil(t, tree.Find(IDRemove))
}

func TestRenderProgressOnlyWhilePositive(t *testing.T) {
	s := DefaultState()
	assert.Nil(t, Render(s).Find(IDProgress))

	s.Submitting = true
	s.Progress = 80
	tree := Render(s)
	require.NotNil(t, tree.Find(IDProgress))
	assert.Contains(t, tree.Find(IDProgress).TextContent(), "80%")
	assert.Equal(t, "width: 80%", tree.Find(IDBar).AttrString("style"))
}

func TestRenderHashtagChips(t *testing.T) {
	s := DefaultState()
	assert.Nil(t, Render(s).Find(IDHashtags))

	s.Caption = "#one #two #one"
	s.Hashtags = ExtractHashtags(s.Caption)
	chips := Render(s).Find(IDHashtags).FindAll(views.ByClass("chip"))
	require.Len(t, chips, 3)
	assert.Equal(t, "#one", chips[0].TextContent())
	assert.Equal(t, "#two", chips[1].TextContent())
	assert.Equal(t, "#one", chips[2].TextContent())
}

func TestRenderSettingsReflectToggles(t *testing.T) {
	s := DefaultState()
	tree := Render(s)
	assert.Contains(t, tree.Find(IDPrivacy).TextContent(), LabelEveryone)
	assert.True(t, tree.Find(IDComments).HasClass("is-on"))
	assert.True(t, tree.Find(IDDuet).HasClass("is-on"))

	s.Privacy = PrivacyPrivate
	s.AllowComments = false
	tree = Render(s)
	assert.Contains(t, tree.Find(IDPrivacy).TextContent(), LabelOnlyMe)
	assert.Equal(t, "private", tree.Find(IDPrivacy).AttrString("data-privacy"))
	assert.False(t, tree.Find(IDComments).HasClass("is-on"))
	assert.Equal(t, "false", tree.Find(IDComments).AttrString("aria-checked"))
	assert.True(t, tree.Find(IDDuet).HasClass("is-on"))
}

func TestRenderIsDeterministic(t *testing.T) {
	s := DefaultState()
	s.Caption = "a #b"
	s.Hashtags = []string{"b"}
	assert.Equal(t, views.HTML(Render(s)), views.HTML(Render(s)))
}

func TestRenderedHTMLEscapesCaption(t *testing.T) {
	s := DefaultState()
	s.Caption = `<script>alert("x")</script> #tag`
	s.Hashtags = ExtractHashtags(s.Caption)

	out := views.HTML(Render(s))
	assert.NotContains(t, out, "<script>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, s.Caption, doc.Find("#"+IDCaption).Text())
	assert.Equal(t, 1, doc.Find("#"+IDHashtags+" .chip").Length())
	_, disabled := doc.Find("#" + IDSubmit).Attr("disabled")
	assert.True(t, disabled)
}
