package storage

import (
	"context"

	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/network"
)

// DefaultSnapshotPath is the local snapshot file used when
// NETWORK_CACHE_PATH is not set.
const DefaultSnapshotPath = "tmp/network_cache.json.gz"

// NewSnapshotStoreFromEnv builds the snapshot store described by the
// NETWORK_CACHE_* environment. It returns nil when caching is disabled. With
// NETWORK_CACHE_S3_KEY set, the local file is layered in front of S3.
func NewSnapshotStoreFromEnv(ctx context.Context) (network.SnapshotStore, error) {
	if !util.GetEnvBool("NETWORK_CACHE_ENABLED", true) {
		return nil, nil
	}
	file := network.NewFileStore(util.GetEnvString("NETWORK_CACHE_PATH", DefaultSnapshotPath))

	key := util.GetEnvString("NETWORK_CACHE_S3_KEY", "")
	if key == "" {
		return file, nil
	}
	client, err := NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	remote := NewS3SnapshotStore(client, util.GetEnv("AWS_BUCKET"), key)
	return network.NewTieredStore(file, remote), nil
}
