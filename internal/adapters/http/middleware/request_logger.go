package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"practice-governance/internal/ports"
)

func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(started).String(),
			}
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
				args = append(args, "request_id", rid)
			}
			if actor, ok := ActorFromContext(c); ok {
				args = append(args, "actor_id", actor.ID, "role", actor.Role)
			}
			logger.Info(c.Request().Context(), "http request", args...)
			return nil
		}
	}
}
