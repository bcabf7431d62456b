package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/storage"
	"github.com/casegraph/backend/internal/timing"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/leaselock"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/logger/console"
	"github.com/casegraph/backend/pkg/network"
	pgxstore "github.com/casegraph/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnv("LOG_FORMAT") == "json",
	})
	logger.Init(consoleLogger)

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	snapshots, err := storage.NewSnapshotStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("Failed to set up snapshot store", "err", err)
	}
	if snapshots == nil {
		logger.Fatal("The worker needs NETWORK_CACHE_ENABLED=true to publish snapshots")
	}

	// Init rabbitmq
	conn := queue.Init(ctx)
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.RebuildQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	directed := util.GetEnvBool("NETWORK_DIRECTED", false)
	rebuilder := &queue.Rebuilder{
		Source:   pgxstore.NewCaseStore(pgConn),
		Store:    snapshots,
		Locks:    leaselock.New(pgConn),
		Channel:  ch,
		Directed: directed,
		Seed:     util.GetEnvUint64("CLUSTER_SEED", 0),
		LeaseTTL: util.GetEnvDuration("REBUILD_LEASE_TTL", 30*time.Minute),
		Record: func(ctx context.Context, n *network.Network, took time.Duration) error {
			return timing.RecordNetworkBuild(
				ctx,
				n.Graph.NodeCount(),
				n.Graph.EdgeCount(),
				n.Graph.Directed(),
				took,
				timing.SourceWorker,
				pgConn,
			)
		},
	}

	// prefetch=1: one rebuild at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.RebuildQueue,
		"network_rebuild_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.RebuildQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.RebuildQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.RebuildQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.RebuildQueue)

			if err := rebuilder.ProcessRebuildMessage(ctx, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.RebuildQueue, "err", err)
				queue.HandleProcessingError(consumerCh, msg, queue.RebuildQueue)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}
			logger.Info("Message processed successfully", "queue", queue.RebuildQueue, "duration", time.Since(startTime))
		}
	}
}
