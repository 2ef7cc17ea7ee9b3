package authmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/auth"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

// AdminChecker answers whether an authenticated identity may mutate shared content.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, id *auth.Identity) error
}

// Gate turns a bearer token into an identity on the request context.
type Gate struct {
	Verifier auth.Verifier
	Admins   AdminChecker
}

func NewGate(v auth.Verifier, admins AdminChecker) *Gate {
	return &Gate{Verifier: v, Admins: admins}
}

// ExtractBearerToken reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func ExtractBearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	const scheme = "bearer "
	if len(h) < len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) {
		return "", apperr.ErrMissingToken
	}
	token := strings.TrimSpace(h[len(scheme):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", apperr.ErrMissingToken
	}
	return token, nil
}

// Authenticate runs NoToken -> TokenPresent -> Authenticated|Rejected for one request.
func (g *Gate) Authenticate(r *http.Request) (*auth.Identity, error) {
	token, err := ExtractBearerToken(r)
	if err != nil {
		return nil, err
	}
	return g.Verifier.Verify(r.Context(), token)
}

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		l := logging.FromContext(req.Context())

		id, err := g.Authenticate(req)
		if err != nil {
			status := apperr.StatusCode(err)
			if errors.Is(err, apperr.ErrServiceUnavailable) {
				l.Error("auth_rejected", "status", status, "reason", "identity provider unreachable", "error", err)
			} else {
				l.Warn("auth_rejected", "status", status, "error", err)
			}
			return apperr.HTTPError(err)
		}

		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
		return next(c)
	}
}

// OptionalAuth attaches an identity when a valid token is presented and
// otherwise lets the request through anonymously.
func (g *Gate) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id, err := g.Authenticate(req)
		if err != nil {
			if !errors.Is(err, apperr.ErrMissingToken) {
				logging.FromContext(req.Context()).Debug("auth_anonymous", "error", err)
			}
			return next(c)
		}
		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
		return next(c)
	}
}

// RequireAdmin must be mounted after RequireAuth.
func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := auth.IdentityFromContext(ctx)
		if id == nil {
			return apperr.HTTPError(apperr.ErrMissingToken)
		}

		if err := g.Admins.RequireAdmin(ctx, id); err != nil {
			l := logging.FromContext(ctx)
			status := apperr.StatusCode(err)
			if status >= http.StatusInternalServerError {
				l.Error("admin_check_failed", "status", status, "user_id", id.ID, "error", err)
			} else {
				l.Warn("admin_check_failed", "status", status, "user_id", id.ID)
			}
			return apperr.HTTPError(err)
		}
		return next(c)
	}
}
