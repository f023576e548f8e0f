package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"practice-governance/internal/domain"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	ctxUserID = "user_id"
	ctxRole   = "role"
)

// SetActor stores the authenticated actor on the request context.
func SetActor(c echo.Context, actor domain.Actor) {
	c.Set(ctxUserID, actor.ID)
	c.Set(ctxRole, actor.Role)
}

// ActorFromContext returns the actor placed by the auth middleware.
func ActorFromContext(c echo.Context) (domain.Actor, bool) {
	id, _ := c.Get(ctxUserID).(string)
	role, _ := c.Get(ctxRole).(domain.Role)
	if id == "" || role == "" {
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, Role: role}, true
}

// ResolveActor builds an Actor from raw session values, resolving deprecated
// role names.
func ResolveActor(userID, rawRole string) (domain.Actor, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Actor{}, domain.ErrInvalidInput
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{ID: userID, Role: role}, nil
}

// HeaderSession reads the actor from the X-User-ID and X-User-Role headers set
// by a trusted upstream.
func HeaderSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := ResolveActor(c.Request().Header.Get(HeaderUserID), c.Request().Header.Get(HeaderUserRole))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or invalid session"})
		}
		SetActor(c, actor)
		return next(c)
	}
}
