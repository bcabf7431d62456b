package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/leaselock"
	"github.com/casegraph/backend/pkg/network"
)

// RebuildLease serializes rebuilds across worker replicas.
const RebuildLease = "citation-network-rebuild"

type leaser interface {
	WithLease(ctx context.Context, name string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// BuildRecorder stores build history. It may be nil.
type BuildRecorder func(ctx context.Context, n *network.Network, took time.Duration) error

// Rebuilder handles messages from RebuildQueue.
type Rebuilder struct {
	Source   citation.EdgeSource
	Store    network.SnapshotStore
	Locks    leaser
	Channel  Channel
	Record   BuildRecorder
	Directed bool
	Seed     uint64
	LeaseTTL time.Duration
}

// RequestRebuild enqueues a rebuild.
func RequestRebuild(ch Channel, reason, requestedBy string) error {
	body, err := json.Marshal(RebuildMsg{
		Reason:      reason,
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return PublishFIFO(ch, RebuildQueue, body)
}

// ProcessRebuildMessage rebuilds the network from the edge source and saves
// the snapshot. A failed save fails the message so it is retried. If another
// replica is already rebuilding, the message is dropped.
func (r *Rebuilder) ProcessRebuildMessage(ctx context.Context, body []byte) error {
	var msg RebuildMsg
	if len(body) > 0 {
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("decode rebuild message: %w", err)
		}
	}
	log.Info("Rebuild requested", "reason", msg.Reason, "requested_by", msg.RequestedBy)

	err := r.Locks.WithLease(ctx, RebuildLease, leaselock.Options{TTL: r.LeaseTTL}, r.rebuild)
	if errors.Is(err, leaselock.ErrBusy) {
		log.Info("Rebuild already running elsewhere, skipping")
		return nil
	}
	return err
}

func (r *Rebuilder) rebuild(ctx context.Context) error {
	start := time.Now()
	n, err := network.Build(ctx, r.Source, r.Directed, r.Seed)
	if err != nil {
		return err
	}
	took := time.Since(start)

	if err := network.SaveSnapshot(ctx, r.Store, n); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if r.Record != nil {
		if err := r.Record(ctx, n, took); err != nil {
			log.Warn("Failed to record network build", "err", err)
		}
	}

	event, err := json.Marshal(NetworkRebuiltEvent{
		Nodes:    n.Graph.NodeCount(),
		Edges:    n.Graph.EdgeCount(),
		Directed: n.Graph.Directed(),
		BuiltAt:  n.BuiltAt,
	})
	if err != nil {
		return err
	}
	if err := PublishTopic(r.Channel, TopicNetworkRebuilt, event); err != nil {
		log.Warn("Failed to publish rebuild event", "err", err)
	}

	log.Info("Network rebuilt", "nodes", n.Graph.NodeCount(), "edges", n.Graph.EdgeCount(), "duration", took)
	return nil
}
