package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens a segment per request and annotates it with the
// caller's role once authentication has run.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			c.SetRequest(c.Request().Clone(ctx))
			err := next(c)
			if actor, ok := ActorFromContext(c); ok {
				_ = seg.AddAnnotation("role", string(actor.Role))
			}
			seg.Close(err)
			return err
		}
	}
}
