package shortpost

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shortpost/views"
)

func (a *App) handleHome(c echo.Context) error {
	tag := strings.TrimSpace(c.QueryParam("tag"))
	posts, err := a.Cache.ListPosts(c.Request().Context(), tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	meta := views.PageMeta{URL: BuildURL(a.Config.URL), CSRFToken: CsrfToken(c)}
	return Render(c, views.Document(views.HomePage(a.site(), meta, feedItems(posts), normalizeTag(tag), tags)))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.Config.StaticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.Config.StaticDir + "/robots.txt")
}

func (a *App) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.Document(views.NotFoundPage(a.site())))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		_ = RenderStatus(c, code, views.Document(views.ServerErrorPage(a.site())))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
