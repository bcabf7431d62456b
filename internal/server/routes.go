package server

import (
	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, app *middleware.App, cacheMaxAge int) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	cache := middleware.CacheControl(cacheMaxAge)

	// Case routes
	e.GET("/cases/similar", routes.GetSimilarCasesHandler, cache)
	e.GET("/cases/:id", routes.GetCaseHandler, cache)
	e.POST("/cases/cluster", routes.ClusterCasesHandler, cache)

	// Network routes
	e.GET("/network", routes.GetNetworkHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)
	apiRoutes.POST("/network/rebuild", routes.RebuildNetworkHandler, middleware.RequireNetworkPermission(middleware.PermissionNetworkRebuild))
	apiRoutes.POST("/network/reload", routes.ReloadNetworkHandler, middleware.RequireNetworkPermission(middleware.PermissionNetworkReload))
}
