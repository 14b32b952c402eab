package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Caller identity arrives as trusted headers injected by the upstream
// gateway. Services authorize on these values, they never authenticate.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

var ErrNoIdentity = errors.New("missing caller identity")

func Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(HeaderUserID)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid identity")
			}

			role := c.Request().Header.Get(HeaderUserRole)
			if role == "" {
				role = RoleUser
			}

			c.Set("user_id", uint(id))
			c.Set("user_role", role)
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, error) {
	v, ok := c.Get("user_id").(uint)
	if !ok || v == 0 {
		return 0, ErrNoIdentity
	}
	return v, nil
}

func Role(c echo.Context) string {
	if v, ok := c.Get("user_role").(string); ok {
		return v
	}
	return RoleUser
}
