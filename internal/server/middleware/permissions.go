package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// Permissions read from the "permissions" claim. PermissionNetworkAdmin
// stands in for every network action.
const (
	PermissionNetworkAdmin   = "network.admin"
	PermissionNetworkRebuild = "network.rebuild"
	PermissionNetworkReload  = "network.reload"
)

func HasAnyPermission(user *AppUser, permissions ...string) bool {
	if user == nil {
		return false
	}
	return slices.ContainsFunc(permissions, func(p string) bool {
		return slices.Contains(user.Permissions, p)
	})
}

func RequireAnyPermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			if !HasAnyPermission(user, permissions...) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + strings.Join(permissions, " or ")})
			}

			return next(c)
		}
	}
}

// RequireNetworkPermission guards a network admin route. Holders of the
// action's own permission or of network.admin pass.
func RequireNetworkPermission(permission string) echo.MiddlewareFunc {
	return RequireAnyPermission(permission, PermissionNetworkAdmin)
}
