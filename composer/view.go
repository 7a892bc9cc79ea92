package composer

import (
	"fmt"

	"github.com/eringen/shortpost/views"
)

// Labels shown by the view.
const (
	LabelTitle      = "New post"
	LabelCancel     = "Cancel"
	LabelPost       = "Post"
	LabelPosting    = "Posting…"
	LabelSelect     = "Select video"
	LabelDrop       = "or drag a file here"
	LabelCaption    = "Caption"
	LabelPrivacy    = "Who can watch"
	LabelEveryone   = "Everyone"
	LabelOnlyMe     = "Only me"
	LabelComments   = "Allow comments"
	LabelDuet       = "Allow duet"
	CaptionHint     = "Describe your video… #hashtags"
	ProgressPattern = "Upload progress: %d%%"
)

// Element ids the host and the client script address.
const (
	IDRoot     = "composer"
	IDCancel   = "cancel-button"
	IDSubmit   = "submit-button"
	IDPrompt   = "upload-prompt"
	IDFile     = "file-input"
	IDPreview  = "video-preview"
	IDRemove   = "remove-video"
	IDCaption  = "caption"
	IDProgress = "upload-progress"
	IDBar      = "upload-progress-bar"
	IDHashtags = "hashtags"
	IDPrivacy  = "privacy-toggle"
	IDComments = "comments-toggle"
	IDDuet     = "duet-toggle"
)

// Render is the view of s. It is a pure function of the state.
func Render(s State) *views.Node {
	return views.Div(views.Attrs{"id": IDRoot, "class": "composer"},
		renderHeader(s),
		views.Div(views.Attrs{"class": "composer-body"},
			renderMedia(s),
			renderCaption(s),
			views.When(s.Progress > 0, func() *views.Node { return renderProgress(s) }),
			views.When(len(s.Hashtags) > 0, func() *views.Node { return renderHashtags(s) }),
			renderSettings(s),
		),
	)
}

func renderHeader(s State) *views.Node {
	enabled := s.CanSubmit()
	label := LabelPost
	if s.Submitting {
		label = LabelPosting
	}
	return views.Div(views.Attrs{"class": "composer-header"},
		views.Button(views.Attrs{
			"id":          IDCancel,
			"type":        "button",
			"class":       "link-button",
			"data-action": "cancel",
			"disabled":    s.Submitting,
		}, views.Text(LabelCancel)),
		views.El("h1", views.Attrs{"class": "composer-title"}, views.Text(LabelTitle)),
		views.Button(views.Attrs{
			"id":          IDSubmit,
			"type":        "button",
			"class":       views.Classes("submit-button", views.If(enabled, "is-enabled")),
			"data-action": "submit",
			"disabled":    !enabled,
		}, views.Text(label)),
	)
}

func renderMedia(s State) *views.Node {
	if s.File == nil {
		return views.Label(views.Attrs{"id": IDPrompt, "class": "upload-prompt"},
			views.El("input", views.Attrs{
				"id":          IDFile,
				"type":        "file",
				"name":        "video",
				"accept":      "video/*",
				"class":       "visually-hidden",
				"data-action": "file",
				"disabled":    s.Submitting,
			}),
			views.Span(views.Attrs{"class": "upload-icon", "aria-hidden": "true"}, views.Text("📹")),
			views.Span(views.Attrs{"class": "upload-label"}, views.Text(LabelSelect)),
			views.Span(views.Attrs{"class": "upload-hint"}, views.Text(LabelDrop)),
		)
	}
	return views.Div(views.Attrs{"class": "video-frame"},
		views.El("video", views.Attrs{
			"id":       IDPreview,
			"src":      s.Preview.URL,
			"controls": true,
			"class":    "video-preview",
		}),
		views.Button(views.Attrs{
			"id":          IDRemove,
			"type":        "button",
			"class":       "remove-video",
			"aria-label":  "Remove video",
			"data-action": "remove",
			"disabled":    s.Submitting,
		}, views.Text("✕")),
	)
}

func renderCaption(s State) *views.Node {
	return views.Div(views.Attrs{"class": "field"},
		views.Label(views.Attrs{"for": IDCaption, "class": "field-label"}, views.Text(LabelCaption)),
		views.El("textarea", views.Attrs{
			"id":          IDCaption,
			"name":        "caption",
			"class":       "caption-input",
			"placeholder": CaptionHint,
			"data-action": "caption",
		}, views.Text(s.Caption)),
	)
}

func renderProgress(s State) *views.Node {
	return views.Div(views.Attrs{"id": IDProgress, "class": "upload-progress"},
		views.Span(views.Attrs{"class": "progress-label"}, views.Text(fmt.Sprintf(ProgressPattern, s.Progress))),
		views.Div(views.Attrs{"class": "progress-track"},
			views.Div(views.Attrs{
				"id":    IDBar,
				"class": "progress-fill",
				"style": fmt.Sprintf("width: %d%%", s.Progress),
			}),
		),
	)
}

func renderHashtags(s State) *views.Node {
	chips := make([]*views.Node, 0, len(s.Hashtags))
	for _, tag := range s.Hashtags {
		chips = append(chips, views.Span(views.Attrs{"class": views.ChipClass(false)}, views.Text(views.HashtagLabel(tag))))
	}
	return views.Div(views.Attrs{"id": IDHashtags, "class": "hashtags"}, chips...)
}

func renderSettings(s State) *views.Node {
	audience, icon := LabelEveryone, "🌐"
	if s.Privacy.IsPrivate() {
		audience, icon = LabelOnlyMe, "🔒"
	}
	return views.Div(views.Attrs{"class": "settings"},
		views.Button(views.Attrs{
			"id":           IDPrivacy,
			"type":         "button",
			"class":        "setting-row",
			"data-action":  "toggle/privacy",
			"data-privacy": string(s.Privacy),
		},
			views.Span(views.Attrs{"class": "setting-text"},
				views.Span(views.Attrs{"class": "setting-title"}, views.Text(LabelPrivacy)),
				views.Span(views.Attrs{"class": "setting-value"}, views.Text(audience)),
			),
			views.Span(views.Attrs{"class": "setting-icon", "aria-hidden": "true"}, views.Text(icon)),
		),
		renderSwitch(IDComments, LabelComments, "toggle/comments", s.AllowComments),
		renderSwitch(IDDuet, LabelDuet, "toggle/duet", s.AllowDuet),
	)
}

func renderSwitch(id, label, action string, on bool) *views.Node {
	return views.Div(views.Attrs{"class": "setting-row"},
		views.Span(views.Attrs{"class": "setting-title"}, views.Text(label)),
		views.Button(views.Attrs{
			"id":           id,
			"type":         "button",
			"role":         "switch",
			"aria-checked": fmt.Sprint(on),
			"class":        views.Classes("switch", views.If(on, "is-on")),
			"data-action":  action,
		}, views.Span(views.Attrs{"class": "switch-knob"})),
	)
}
