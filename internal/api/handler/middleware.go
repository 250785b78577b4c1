package handler

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

const (
	HeaderAdminKey = "X-Admin-Key"
	HeaderSuperKey = "X-Super-Key"

	ROLE_ADMIN = "admin"
	ROLE_SUPER = "super"
)

type ctxKey string

var ctxKeyAdminRole ctxKey = "ADMIN_ROLE"

func keyMatches(given, expected string) bool {
	return expected != "" && subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}

// AuthnAdmin lets a request through when it carries the admin or the super
// key. The super key also grants ROLE_SUPER.
func AuthnAdmin(adminKey, superKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header
			role := ""
			switch {
			case keyMatches(header.Get(HeaderSuperKey), superKey):
				role = ROLE_SUPER
			case keyMatches(header.Get(HeaderAdminKey), adminKey):
				role = ROLE_ADMIN
			}

			if role == "" {
				//nolint:errcheck
				httpx.Abort(c, errorx.Wrap(errors.New("unauthorized"), errorx.Authn), -1)
				return nil
			}

			ctx := context.WithValue(c.Request().Context(), ctxKeyAdminRole, role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func RequireSuper(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Request().Context().Value(ctxKeyAdminRole).(string)
		if role != ROLE_SUPER {
			//nolint:errcheck
			httpx.Abort(c, errorx.Wrap(errors.New("super key required"), errorx.Authn), -1)
			return nil
		}
		return next(c)
	}
}
