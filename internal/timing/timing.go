package timing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Build sources.
const (
	SourceServer = "server"
	SourceWorker = "worker"
	SourceCLI    = "cli"
)

// NetworkBuild is one row of the network build history.
type NetworkBuild struct {
	ID         int64     `json:"id" db:"id"`
	Nodes      int32     `json:"nodes" db:"nodes"`
	Edges      int32     `json:"edges" db:"edges"`
	Directed   bool      `json:"directed" db:"directed"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	Source     string    `json:"source" db:"source"`
	BuiltAt    time.Time `json:"built_at" db:"built_at"`
}

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const recordBuildSQL = `
INSERT INTO network_builds (nodes, edges, directed, duration_ms, source)
VALUES ($1, $2, $3, $4, $5)`

const latestBuildSQL = `
SELECT id, nodes, edges, directed, duration_ms, source, built_at
FROM network_builds
ORDER BY built_at DESC, id DESC
LIMIT 1`

func RecordNetworkBuild(
	ctx context.Context,
	nodes, edges int,
	directed bool,
	duration time.Duration,
	source string,
	conn dbConn,
) error {
	_, err := conn.Exec(ctx, recordBuildSQL, int32(nodes), int32(edges), directed, duration.Milliseconds(), source)
	if err != nil {
		return fmt.Errorf("record network build: %w", err)
	}
	return nil
}

// LatestNetworkBuild returns nil without an error when no build was recorded.
func LatestNetworkBuild(ctx context.Context, conn dbConn) (*NetworkBuild, error) {
	rows, err := conn.Query(ctx, latestBuildSQL)
	if err != nil {
		return nil, fmt.Errorf("query network builds: %w", err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[NetworkBuild])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan network build: %w", err)
	}
	return b, nil
}
