package middleware

import (
	"context"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/timing"
	"github.com/casegraph/backend/pkg/metrics"
	"github.com/casegraph/backend/pkg/network"
	"github.com/casegraph/backend/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

// BuildHistory returns the most recent network build, or nil if none was
// recorded.
type BuildHistory func(ctx context.Context) (*timing.NetworkBuild, error)

type App struct {
	Service  *network.Service
	Holder   *network.Holder
	Opinions store.OpinionStore
	Builds   BuildHistory
	Queue    queue.Channel
	Keyfunc  jwt.Keyfunc
	Metrics  *metrics.Metrics

	// ClusterSem bounds concurrent clustering computations.
	ClusterSem *semaphore.Weighted

	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
