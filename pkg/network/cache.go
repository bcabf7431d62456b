package network

import (
	"context"
	"errors"
	"time"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/metrics"
)

type loadConfig struct {
	store    SnapshotStore
	directed bool
	seed     uint64
	metrics  *metrics.Metrics
	onBuild  func(ctx context.Context, n *Network, took time.Duration)
}

type LoadOption func(*loadConfig)

// WithSnapshotStore enables snapshot caching. Without it every load
// constructs the network from the edge source.
func WithSnapshotStore(s SnapshotStore) LoadOption {
	return func(c *loadConfig) {
		c.store = s
	}
}

func WithDirected(directed bool) LoadOption {
	return func(c *loadConfig) {
		c.directed = directed
	}
}

func WithSeed(seed uint64) LoadOption {
	return func(c *loadConfig) {
		c.seed = seed
	}
}

func WithMetrics(m *metrics.Metrics) LoadOption {
	return func(c *loadConfig) {
		c.metrics = m
	}
}

// WithBuildHook calls fn after the network was constructed from the edge
// source. It is not called for networks restored from a snapshot.
func WithBuildHook(fn func(ctx context.Context, n *Network, took time.Duration)) LoadOption {
	return func(c *loadConfig) {
		c.onBuild = fn
	}
}

func newLoadConfig(opts []LoadOption) loadConfig {
	var c loadConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&c)
	}
	return c
}

// LoadOrConstruct returns the cached network when the snapshot store holds a
// usable one, and otherwise constructs it from src and caches it. Snapshot
// failures never reach the caller: an unreadable snapshot falls back to
// construction and a failed save is only logged. Construction errors are
// returned.
func LoadOrConstruct(ctx context.Context, src citation.EdgeSource, opts ...LoadOption) (*Network, error) {
	cfg := newLoadConfig(opts)

	if cfg.store == nil {
		cfg.metrics.RecordSnapshot(metrics.SnapshotDisabled)
		return construct(ctx, src, cfg)
	}

	data, err := loadData(ctx, cfg.store)
	if err == nil {
		n, rerr := Restore(data, cfg.seed)
		if rerr == nil {
			cfg.metrics.RecordSnapshot(metrics.SnapshotLoaded)
			log.Info("Loaded citation network from snapshot",
				"nodes", n.Graph.NodeCount(),
				"edges", n.Graph.EdgeCount(),
				"built_at", n.BuiltAt,
			)
			return n, nil
		}
		err = rerr
	}

	if errors.Is(err, ErrSnapshotNotFound) {
		cfg.metrics.RecordSnapshot(metrics.SnapshotMissing)
		log.Info("No network snapshot found, constructing")
	} else {
		cfg.metrics.RecordSnapshot(metrics.SnapshotFailed)
		log.Warn("Loading network snapshot failed, constructing", "err", err)
	}

	n, err := construct(ctx, src, cfg)
	if err != nil {
		return nil, err
	}
	save(ctx, cfg.store, n, cfg.metrics)
	return n, nil
}

func construct(ctx context.Context, src citation.EdgeSource, cfg loadConfig) (*Network, error) {
	start := time.Now()
	n, err := Build(ctx, src, cfg.directed, cfg.seed)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)
	cfg.metrics.RecordBuild(took)
	if cfg.onBuild != nil {
		cfg.onBuild(ctx, n, took)
	}
	return n, nil
}

// save is best-effort.
func save(ctx context.Context, store SnapshotStore, n *Network, m *metrics.Metrics) {
	if err := SaveSnapshot(ctx, store, n); err != nil {
		m.RecordSnapshot(metrics.SnapshotSaveError)
		log.Warn("Saving network snapshot failed", "err", err)
		return
	}
	m.RecordSnapshot(metrics.SnapshotSaved)
}

// SaveSnapshot encodes n and writes it to store.
func SaveSnapshot(ctx context.Context, store SnapshotStore, n *Network) error {
	data, err := Encode(n)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, data); err != nil {
		return err
	}
	log.Debug("Saved network snapshot", "bytes", len(data))
	return nil
}

// LoadSnapshot reads and restores the network held by store. Stores that
// keep several copies yield the most recently built one.
func LoadSnapshot(ctx context.Context, store SnapshotStore, seed uint64) (*Network, error) {
	data, err := loadData(ctx, store)
	if err != nil {
		return nil, err
	}
	return Restore(data, seed)
}

type latestLoader interface {
	LoadLatest(ctx context.Context) ([]byte, error)
}

func loadData(ctx context.Context, store SnapshotStore) ([]byte, error) {
	if l, ok := store.(latestLoader); ok {
		return l.LoadLatest(ctx)
	}
	return store.Load(ctx)
}
