package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/service"
	"github.com/Skotchmaster/deen_api/internal/transport"
)

type PreferenceHTTP struct {
	Svc *service.PreferenceService
}

func (h *PreferenceHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return apperr.HTTPError(apperr.ErrMissingToken)
	}

	p, err := h.Svc.Get(ctx, id.ID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "preferences", p)
}

func (h *PreferenceHTTP) Put(c echo.Context) error {
	ctx := c.Request().Context()
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return apperr.HTTPError(apperr.ErrMissingToken)
	}

	var req transport.PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Put(ctx, id.ID, req)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "preferences updated", p)
}
