package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/deen_api/internal/middleware/auth"
)

type Deps struct {
	AuthHandler       *AuthHTTP
	VideoHandler      *VideoHTTP
	PreferenceHandler *PreferenceHTTP
	Gate              *authmw.Gate

	// AuthRateLimit is the per-IP budget per minute for register and login; 0 disables it.
	AuthRateLimit int
	Ready         func(ctx context.Context) error
}

func credentialLimiter(perMinute int) []echo.MiddlewareFunc {
	if perMinute <= 0 {
		return nil
	}
	return []echo.MiddlewareFunc{echo.WrapMiddleware(httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusTooManyRequests, "too many requests")
		}),
	))}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1")

	limit := credentialLimiter(d.AuthRateLimit)
	v1.POST("/auth/register", d.AuthHandler.Register, limit...)
	v1.POST("/auth/login", d.AuthHandler.Login, limit...)
	v1.GET("/auth/me", d.AuthHandler.Me, d.Gate.RequireAuth)

	v1.GET("/preferences", d.PreferenceHandler.Get, d.Gate.RequireAuth)
	v1.PUT("/preferences", d.PreferenceHandler.Put, d.Gate.RequireAuth)

	v1.GET("/videos", d.VideoHandler.List, d.Gate.OptionalAuth)
	v1.GET("/videos/search", d.VideoHandler.Search)
	v1.GET("/videos/:id", d.VideoHandler.Get)

	admin := v1.Group("/admin", d.Gate.RequireAuth, d.Gate.RequireAdmin)
	admin.POST("/videos", d.VideoHandler.Create)
	admin.PATCH("/videos/:id", d.VideoHandler.Patch)
	admin.DELETE("/videos/:id", d.VideoHandler.Delete)
	admin.PATCH("/users/:id", d.AuthHandler.SetAdmin)
}
