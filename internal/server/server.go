package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/casegraph/backend/internal/db"
	"github.com/casegraph/backend/internal/queue"
	mid "github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/storage"
	"github.com/casegraph/backend/internal/timing"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/metrics"
	"github.com/casegraph/backend/pkg/network"
	"github.com/casegraph/backend/pkg/store"
	pgxstore "github.com/casegraph/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/semaphore"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewEcho returns an echo instance serving app.
func NewEcho(app *mid.App, cacheMaxAge int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Use(mid.AppContextMiddleware(app))
	RegisterRoutes(e, app, cacheMaxAge)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := db.Migrate(databaseURL, util.GetEnvString("MIGRATIONS_PATH", db.DefaultMigrationsPath)); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	m := metrics.NewMetrics()
	cases := pgxstore.NewCaseStore(conn)

	snapshots, err := storage.NewSnapshotStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("Failed to set up snapshot store", "err", err)
	}

	directed := util.GetEnvBool("NETWORK_DIRECTED", false)
	seed := util.GetEnvUint64("CLUSTER_SEED", 0)

	initial, err := network.LoadOrConstruct(ctx, cases,
		network.WithSnapshotStore(snapshots),
		network.WithDirected(directed),
		network.WithSeed(seed),
		network.WithMetrics(m),
		network.WithBuildHook(func(ctx context.Context, n *network.Network, took time.Duration) {
			if err := timing.RecordNetworkBuild(ctx, n.Graph.NodeCount(), n.Graph.EdgeCount(), n.Graph.Directed(), took, timing.SourceServer, conn); err != nil {
				logger.Warn("Failed to record network build", "err", err)
			}
		}),
	)
	if err != nil {
		logger.Fatal("Failed to load citation network", "err", err)
	}

	var load network.Loader
	if snapshots != nil {
		load = func(ctx context.Context) (*network.Network, error) {
			return network.LoadSnapshot(ctx, snapshots, seed)
		}
	} else {
		load = func(ctx context.Context) (*network.Network, error) {
			return network.Build(ctx, cases, directed, seed)
		}
	}
	holder := network.NewHolder(initial, load, m)
	holder.StartRefresh(ctx, util.GetEnvDuration("NETWORK_REFRESH_INTERVAL", 0))

	var lookup store.CaseSimilarityLookup = cases
	if util.GetEnvString("SIMILARITY_SOURCE", "db") == "graph" {
		lookup = holder
	}
	service := network.NewService(holder, lookup, cases,
		network.WithMaxIDs(util.GetEnvInt("CLUSTER_MAX_IDS", network.DefaultMaxIDs)),
		network.WithServiceMetrics(m),
	)

	que := queue.Init(ctx)
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, []string{queue.RebuildQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	go reloadOnRebuild(ctx, que, holder)

	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	app := &mid.App{
		Service:  service,
		Holder:   holder,
		Opinions: cases,
		Builds: func(ctx context.Context) (*timing.NetworkBuild, error) {
			return timing.LatestNetworkBuild(ctx, conn)
		},
		Queue:          ch,
		Metrics:        m,
		ClusterSem:     semaphore.NewWeighted(int64(max(1, util.GetEnvInt("CLUSTER_MAX_CONCURRENCY", 2)))),
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   masterUserID,
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Keyfunc = k.Keyfunc
	}

	e := NewEcho(app, util.GetEnvInt("CACHE_MAX_AGE", 300))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// reloadOnRebuild refreshes the holder whenever a worker announces a new
// snapshot.
func reloadOnRebuild(ctx context.Context, conn *amqp091.Connection, holder *network.Holder) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open subscriber channel", "err", err)
		return
	}
	defer ch.Close()

	deliveries, err := queue.SubscribeTopic(ch, queue.TopicNetworkRebuilt)
	if err != nil {
		logger.Error("Failed to subscribe to rebuild events", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			logger.Debug("Network rebuilt event received", "size", len(d.Body))
			if _, err := holder.Refresh(ctx); err != nil {
				logger.Warn("Failed to reload network after rebuild", "err", err)
			}
		}
	}
}
