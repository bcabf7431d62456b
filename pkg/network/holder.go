package network

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrNotReady is returned when no network has been published yet.
var ErrNotReady = errors.New("citation network not ready")

// Loader produces a complete network, for example from a snapshot store.
type Loader func(ctx context.Context) (*Network, error)

// Holder publishes the current network to concurrent readers. Readers
// borrow the pointer returned by Current and keep using it for the whole
// request, so a swap never affects a computation already running.
type Holder struct {
	current atomic.Pointer[Network]
	load    Loader
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewHolder creates a holder publishing initial, which may be nil. load is
// used by Refresh.
func NewHolder(initial *Network, load Loader, m *metrics.Metrics) *Holder {
	h := &Holder{load: load, metrics: m}
	if initial != nil {
		h.Swap(initial)
	}
	return h
}

// Current returns the published network or nil.
func (h *Holder) Current() *Network {
	return h.current.Load()
}

// Swap publishes n and returns the previous network.
func (h *Holder) Swap(n *Network) *Network {
	old := h.current.Swap(n)
	h.metrics.UpdateNetwork(n.Graph.NodeCount(), n.Graph.EdgeCount(), n.BuiltAt)
	return old
}

// Refresh loads a new network and publishes it. Concurrent calls share one
// load, which keeps running when the caller that started it goes away. On
// failure the current network stays published.
func (h *Holder) Refresh(ctx context.Context) (*Network, error) {
	v, err, _ := h.group.Do("refresh", func() (any, error) {
		n, err := h.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		h.Swap(n)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	n := v.(*Network)
	log.Info("Citation network refreshed", "nodes", n.Graph.NodeCount(), "built_at", n.BuiltAt)
	return n, nil
}

// StartRefresh refreshes every interval until ctx is done. A non-positive
// interval disables it.
func (h *Holder) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := h.Refresh(ctx); err != nil {
					log.Warn("Periodic network refresh failed", "err", err)
				}
			}
		}
	}()
}

// CaseSimilarity ranks candidates against the current network, which makes
// the holder a graph-backed store.CaseSimilarityLookup.
func (h *Holder) CaseSimilarity(ctx context.Context, ids []int64, limit int) ([]common.SimilarityRecord, error) {
	n := h.Current()
	if n == nil {
		return nil, ErrNotReady
	}
	return n.Similarity.CaseSimilarity(ctx, ids, limit)
}
