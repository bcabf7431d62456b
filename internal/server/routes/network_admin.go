package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/network"

	"github.com/labstack/echo/v4"
)

// RebuildNetworkHandler asks the worker to rebuild the network from the database.
func RebuildNetworkHandler(c echo.Context) error {
	type rebuildBody struct {
		Reason string `json:"reason"`
	}

	data := new(rebuildBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if data.Reason == "" {
		data.Reason = "api"
	}

	appCtx := c.(*middleware.AppContext)
	if appCtx.App.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Rebuild queue unavailable"})
	}

	requestedBy := strconv.FormatInt(appCtx.User.UserID, 10)
	if err := queue.RequestRebuild(appCtx.App.Queue, data.Reason, requestedBy); err != nil {
		logger.Error("Failed to enqueue rebuild", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to enqueue rebuild"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

// ReloadNetworkHandler swaps in the latest stored network.
func ReloadNetworkHandler(c echo.Context) error {
	holder := c.(*middleware.AppContext).App.Holder
	n, err := holder.Refresh(c.Request().Context())
	if errors.Is(err, network.ErrSnapshotNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No snapshot available"})
	}
	if err != nil {
		logger.Error("Failed to reload network", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reload network"})
	}

	return c.JSON(http.StatusOK, networkResponse{
		Nodes:    n.Graph.NodeCount(),
		Edges:    n.Graph.EdgeCount(),
		Directed: n.Graph.Directed(),
		BuiltAt:  n.BuiltAt,
	})
}
