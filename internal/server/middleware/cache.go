package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// CacheControl lets clients and proxies cache responses for maxAge seconds.
func CacheControl(maxAge int) echo.MiddlewareFunc {
	value := fmt.Sprintf("max-age=%d", maxAge)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Cache-Control", value)
			return next(c)
		}
	}
}
