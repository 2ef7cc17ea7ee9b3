package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/service"
	"github.com/Skotchmaster/deen_api/internal/transport"
	"github.com/Skotchmaster/deen_api/internal/util"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

type VideoHTTP struct {
	Svc *service.VideoService
}

func pageParams(c echo.Context) (int, int) {
	return util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
}

func (h *VideoHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	page, size := pageParams(c)

	list, err := h.Svc.List(ctx, auth.IdentityFromContext(ctx), page, size)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "videos", list)
}

func (h *VideoHTTP) Get(c echo.Context) error {
	v, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "video", v)
}

func (h *VideoHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_search")
	page, size := pageParams(c)

	list, err := h.Svc.SearchVideos(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		l.Warn("search_failed", "status", apperr.StatusCode(err), "error", err)
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "search results", list)
}

func (h *VideoHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_create")

	var req transport.CreateVideoRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("video_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	v, err := h.Svc.Create(ctx, auth.IdentityFromContext(ctx), req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	l.Info("video_create_success", "video_id", v.ID)
	return success(c, http.StatusCreated, "created", v)
}

func (h *VideoHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video_patch")

	var req transport.PatchVideoRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("video_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	v, err := h.Svc.Patch(ctx, c.Param("id"), req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	l.Info("video_patch_success", "video_id", v.ID)
	return success(c, http.StatusOK, "updated", v)
}

func (h *VideoHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.Svc.Delete(ctx, c.Param("id")); err != nil {
		return apperr.HTTPError(err)
	}
	logging.FromContext(ctx).Info("video_delete_success", "video_id", c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
