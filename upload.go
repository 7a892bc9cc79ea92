package shortpost

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shortpost/composer"
	"github.com/eringen/shortpost/preview"
	"github.com/eringen/shortpost/views"
)

// Host notices for conditions the form itself does not report.
const (
	MsgBusy        = "Your video is still uploading."
	MsgRateLimited = "You are posting too fast. Try again in a minute."
)

func (a *App) handleUploadPage(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	d.take()
	meta := views.PageMeta{
		Title:     composer.LabelTitle,
		URL:       BuildURL(a.Config.URL, "upload"),
		CSRFToken: CsrfToken(c),
	}
	return Render(c, views.Document(views.UploadPage(a.site(), meta, d.form.View())))
}

func (a *App) handleSelectFile(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	var file *composer.File
	if fh, err := c.FormFile("video"); err == nil {
		file = uploadedFile(fh)
	}
	err = d.form.SelectFile(file)
	switch {
	case err == nil:
		a.Metrics.FileSelections.WithLabelValues("accepted").Inc()
	case errors.Is(err, composer.ErrNotVideo):
		a.Metrics.FileSelections.WithLabelValues("rejected").Inc()
	}
	return a.respond(c, d, err)
}

// uploadedFile exposes a multipart file to the form. The form copies it into
// a preview before the request ends.
func uploadedFile(fh *multipart.FileHeader) *composer.File {
	return &composer.File{
		Name:      fh.Filename,
		MediaType: VideoMediaType(fh.Header.Get("Content-Type"), fh.Filename),
		Size:      fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (a *App) handleCaption(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	d.form.SetCaption(c.FormValue("caption"))
	return a.respond(c, d, nil)
}

func (a *App) handleToggle(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	switch c.Param("setting") {
	case "privacy":
		d.form.TogglePrivacy()
	case "comments":
		d.form.ToggleComments()
	case "duet":
		d.form.ToggleDuet()
	default:
		return echo.ErrNotFound
	}
	return a.respond(c, d, nil)
}

func (a *App) handleRemoveVideo(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	return a.respond(c, d, d.form.RemoveVideo())
}

func (a *App) handleCancel(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	return a.respond(c, d, d.form.Cancel())
}

func (a *App) handleSubmit(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	if !a.submitLimiter.Allow(c.RealIP()) {
		a.Metrics.CountSubmission("limited")
		sig := &signals{}
		sig.Notify(composer.Notice{Level: composer.LevelWarning, Message: MsgRateLimited})
		return a.writeFragment(c, d, sig, http.StatusTooManyRequests)
	}

	// The submission outlives a closed tab; it cannot be aborted from the UI.
	// Its notices and navigation belong to this response only.
	sig := &signals{}
	ctx := composer.WithHost(context.WithoutCancel(c.Request().Context()), sig, sig)
	err = d.form.Submit(ctx)
	switch {
	case err == nil:
		a.Metrics.CountSubmission("published")
	case errors.Is(err, composer.ErrMissingFields):
		a.Metrics.CountSubmission("rejected")
	case errors.Is(err, composer.ErrSubmitInFlight):
		a.Metrics.CountSubmission("busy")
	default:
		a.Metrics.CountSubmission("failed")
	}
	return a.respondWith(c, d, sig, err)
}

// respond maps a form error to a status and writes the draft fragment with
// the draft's queued notices and navigation.
func (a *App) respond(c echo.Context, d *draft, err error) error {
	return a.respondWith(c, d, &d.signals, err)
}

func (a *App) respondWith(c echo.Context, d *draft, sig *signals, err error) error {
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, composer.ErrNotVideo), errors.Is(err, composer.ErrMissingFields):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, composer.ErrSubmitInFlight):
		status = http.StatusConflict
		sig.Notify(composer.Notice{Level: composer.LevelInfo, Message: MsgBusy})
	case errors.Is(err, composer.ErrPublish):
		status = http.StatusBadGateway
	default:
		// preview failures; the form already told the user
		a.Logger.Error().Err(err).Str("draft", d.id).Msg("draft action failed")
		status = http.StatusInternalServerError
	}
	return a.writeFragment(c, d, sig, status)
}

func (a *App) writeFragment(c echo.Context, d *draft, sig *signals, status int) error {
	notices, tab := sig.take()
	h := c.Response().Header()
	if len(notices) > 0 {
		trigger, err := ToastTrigger(notices)
		if err != nil {
			return err
		}
		h.Set("HX-Trigger", trigger)
	}
	if tab != "" {
		h.Set("HX-Redirect", TabPath(tab))
	}
	h.Set(echo.HeaderCacheControl, "no-store")
	return RenderStatus(c, status, views.Component(d.form.View()))
}

// handlePreview serves a selected file back to the browser before upload.
func (a *App) handlePreview(c echo.Context) error {
	f, info, err := a.Previews.OpenFile(c.Param("id"))
	if err != nil {
		if errors.Is(err, preview.ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	defer f.Close()
	c.Response().Header().Set(echo.HeaderContentType, info.MediaType)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	http.ServeContent(c.Response(), c.Request(), info.Name, info.CreatedAt, f)
	return nil
}
