package routes

import (
	"net/http"
	"time"

	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/timing"
	"github.com/casegraph/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type networkResponse struct {
	Nodes     int                  `json:"nodes"`
	Edges     int                  `json:"edges"`
	Directed  bool                 `json:"directed"`
	BuiltAt   time.Time            `json:"built_at"`
	LastBuild *timing.NetworkBuild `json:"last_build,omitempty"`
}

// GetNetworkHandler describes the citation network currently served.
func GetNetworkHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	n := app.Holder.Current()
	if n == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Citation network is not loaded yet"})
	}

	res := networkResponse{
		Nodes:    n.Graph.NodeCount(),
		Edges:    n.Graph.EdgeCount(),
		Directed: n.Graph.Directed(),
		BuiltAt:  n.BuiltAt,
	}

	if app.Builds != nil {
		build, err := app.Builds(c.Request().Context())
		if err != nil {
			logger.Warn("Failed to read build history", "err", err)
		} else {
			res.LastBuild = build
		}
	}

	return c.JSON(http.StatusOK, res)
}
