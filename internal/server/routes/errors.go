package routes

import (
	"errors"
	"net/http"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/network"

	"github.com/labstack/echo/v4"
)

// errorResponse maps service errors to their HTTP status.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Case not found"})
	case errors.Is(err, network.ErrNotReady):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Citation network is not loaded yet"})
	}
	logger.Error("Request failed", "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
