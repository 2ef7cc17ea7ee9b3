package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/internal/service"
	"github.com/Skotchmaster/deen_api/internal/transport"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func authData(res *auth.Result) transport.AuthData {
	return transport.AuthData{
		ID:        res.User.ID,
		Email:     res.User.Email,
		Name:      res.User.Name,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusCreated, "registered", authData(res))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "logged in", authData(res))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	id := auth.IdentityFromContext(ctx)
	if id == nil {
		return apperr.HTTPError(apperr.ErrMissingToken)
	}

	u, err := h.Svc.Profile(ctx, id.ID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "profile", transport.Profile(u))
}

func (h *AuthHTTP) SetAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_set_admin")

	var req transport.SetAdminRequest
	if err := c.Bind(&req); err != nil || req.IsAdmin == nil {
		l.Warn("set_admin_error", "status", 400, "reason", "is_admin is required")
		return echo.NewHTTPError(http.StatusBadRequest, "is_admin is required")
	}

	u, err := h.Svc.SetAdmin(ctx, c.Param("id"), *req.IsAdmin)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return success(c, http.StatusOK, "updated", transport.Profile(u))
}
