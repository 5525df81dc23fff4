package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
)

// Context keys written by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// ActorFrom returns the authenticated actor stored by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	id, _ := c.Get(ctxUserID).(string)
	role, _ := c.Get(ctxRole).(string)
	if id == "" || role == "" {
		return model.Actor{}, false
	}
	return model.Actor{ID: id, Role: model.Role(role)}, true
}

// userID returns the authenticated subject, or "anon" before JWTAuth ran.
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(string); ok && id != "" {
		return id
	}
	return "anon"
}
