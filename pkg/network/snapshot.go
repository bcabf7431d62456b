package network

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/common"
)

// SnapshotVersion is the format version written by Encode.
const SnapshotVersion = 1

// ErrSnapshotCorrupt is returned when a snapshot cannot be decoded.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

// Snapshot is the minimal state needed to rebuild a network: the graph kind,
// its nodes and its collapsed edges. Nodes without edges are listed so that
// self-citing opinions survive a round trip.
type Snapshot struct {
	Version  int           `json:"version"`
	Directed bool          `json:"directed"`
	BuiltAt  time.Time     `json:"built_at"`
	Nodes    []int64       `json:"nodes"`
	Edges    []common.Edge `json:"edges"`
}

// Encode serializes the network as gzip-compressed JSON.
func Encode(n *Network) ([]byte, error) {
	snap := Snapshot{
		Version:  SnapshotVersion,
		Directed: n.Graph.Directed(),
		BuiltAt:  n.BuiltAt,
		Nodes:    n.Graph.Nodes(),
		Edges:    n.Graph.Edges(),
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot produced by Encode. Any failure, including an
// unknown version, wraps ErrSnapshotCorrupt.
func Decode(data []byte) (*Snapshot, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSnapshotCorrupt, snap.Version)
	}
	return &snap, nil
}

// Restore rebuilds the network described by the snapshot.
func (s *Snapshot) Restore(seed uint64) (*Network, error) {
	g, err := citation.FromEdges(s.Nodes, s.Edges, s.Directed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	return newNetwork(g, seed, s.BuiltAt), nil
}

// Restore decodes and rebuilds a network in one step.
func Restore(data []byte, seed uint64) (*Network, error) {
	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return snap.Restore(seed)
}
