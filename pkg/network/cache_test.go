package network

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoadOrConstruct(t *testing.T) {
	ctx := context.Background()
	cached, err := Encode(buildTestNetwork(t, false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name       string
		store      *memStore
		wantBuilds int32
		wantSaves  int
		outcome    string
	}{
		{
			name:       "caching disabled",
			store:      nil,
			wantBuilds: 1,
			outcome:    metrics.SnapshotDisabled,
		},
		{
			name:       "no snapshot yet",
			store:      &memStore{},
			wantBuilds: 1,
			wantSaves:  1,
			outcome:    metrics.SnapshotMissing,
		},
		{
			name:       "snapshot loaded",
			store:      &memStore{data: cached},
			wantBuilds: 0,
			outcome:    metrics.SnapshotLoaded,
		},
		{
			name:       "corrupt snapshot",
			store:      &memStore{data: []byte("garbage")},
			wantBuilds: 1,
			wantSaves:  1,
			outcome:    metrics.SnapshotFailed,
		},
		{
			name:       "unreadable store",
			store:      &memStore{loadErr: errBoom},
			wantBuilds: 1,
			wantSaves:  1,
			outcome:    metrics.SnapshotFailed,
		},
		{
			name:       "save failure is absorbed",
			store:      &memStore{saveErr: errBoom},
			wantBuilds: 1,
			wantSaves:  1,
			outcome:    metrics.SnapshotSaveError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{citations: testCitations}
			m := metrics.NewMetrics()
			opts := []LoadOption{WithMetrics(m)}
			if tt.store != nil {
				opts = append(opts, WithSnapshotStore(tt.store))
			}

			n, err := LoadOrConstruct(ctx, src, opts...)
			if err != nil {
				t.Fatalf("LoadOrConstruct: %v", err)
			}
			if n.Graph.NodeCount() != 6 {
				t.Fatalf("nodes = %d, want 6", n.Graph.NodeCount())
			}
			if got := src.calls.Load(); got != tt.wantBuilds {
				t.Fatalf("constructed %d times, want %d", got, tt.wantBuilds)
			}
			if tt.store != nil && tt.store.saves != tt.wantSaves {
				t.Fatalf("saved %d times, want %d", tt.store.saves, tt.wantSaves)
			}
			if got := testutil.ToFloat64(m.SnapshotOperationsTotal.WithLabelValues(tt.outcome)); got != 1 {
				t.Fatalf("outcome %q recorded %v times", tt.outcome, got)
			}
		})
	}
}

func TestLoadOrConstructRepairsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &memStore{data: []byte("garbage")}
	src := &fakeSource{citations: testCitations}

	if _, err := LoadOrConstruct(ctx, src, WithSnapshotStore(store)); err != nil {
		t.Fatalf("LoadOrConstruct: %v", err)
	}
	if _, err := LoadOrConstruct(ctx, src, WithSnapshotStore(store)); err != nil {
		t.Fatalf("LoadOrConstruct: %v", err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("second load should use the rewritten snapshot, constructed %d times", got)
	}
}

func TestLoadOrConstructDirected(t *testing.T) {
	n, err := LoadOrConstruct(context.Background(), &fakeSource{citations: testCitations}, WithDirected(true))
	if err != nil {
		t.Fatalf("LoadOrConstruct: %v", err)
	}
	if !n.Graph.Directed() {
		t.Fatalf("expected a directed graph")
	}
}

func TestLoadOrConstructSourceFailure(t *testing.T) {
	store := &memStore{}
	_, err := LoadOrConstruct(context.Background(), &fakeSource{err: errBoom}, WithSnapshotStore(store))
	if !errors.Is(err, citation.ErrConstruction) || !errors.Is(err, errBoom) {
		t.Fatalf("expected ErrConstruction wrapping errBoom, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("nothing should be saved after a failed construction")
	}
}

func TestLoadOrConstructBuildHook(t *testing.T) {
	cached, err := Encode(buildTestNetwork(t, false))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var hooked []int
	hook := WithBuildHook(func(_ context.Context, n *Network, _ time.Duration) {
		hooked = append(hooked, n.Graph.NodeCount())
	})

	src := &fakeSource{citations: testCitations}
	if _, err := LoadOrConstruct(context.Background(), src, WithSnapshotStore(&memStore{data: cached}), hook); err != nil {
		t.Fatalf("LoadOrConstruct: %v", err)
	}
	if len(hooked) != 0 {
		t.Fatalf("hook called for a restored snapshot")
	}

	if _, err := LoadOrConstruct(context.Background(), src, hook); err != nil {
		t.Fatalf("LoadOrConstruct: %v", err)
	}
	if !reflect.DeepEqual(hooked, []int{6}) {
		t.Fatalf("hooked = %v, want [6]", hooked)
	}
}
