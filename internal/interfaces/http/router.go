package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	RateLimit     echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
}

type Handlers struct {
	Access    *AccessHandler
	Documents *DocumentsHandler
	Audit     *AuditHandler
}

func newEcho(m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if m.XRay != nil {
		e.Use(m.XRay)
	}
	if m.RequestLogger != nil {
		e.Use(m.RequestLogger)
	}
	return e
}

// NewRouter mounts the governance API. metrics may be nil; /metrics and
// /healthz are served without authentication.
func NewRouter(h Handlers, m Middleware, metrics stdhttp.Handler) *echo.Echo {
	e := newEcho(m)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	api := e.Group("")
	if m.Auth != nil {
		api.Use(m.Auth)
	}
	if m.RateLimit != nil {
		api.Use(m.RateLimit)
	}
	api.GET("/surfaces", h.Access.Surfaces)
	api.GET("/surfaces/:surface/access", h.Access.SurfaceAccess)
	api.GET("/actions/:action/allowed", h.Access.ActionAllowed)

	api.POST("/documents", h.Documents.Create)
	api.GET("/documents/:id", h.Documents.Get)
	api.POST("/documents/:id/validate/:action", h.Documents.Validate)
	api.POST("/documents/:id/actions/:action", h.Documents.Execute)

	api.GET("/documents/:id/audit", h.Audit.DocumentHistory)
	api.GET("/audit", h.Audit.List)
	return e
}
