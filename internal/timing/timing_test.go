package timing

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordingConn struct {
	sql  string
	args []any
	err  error
}

func (c *recordingConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql, c.args = sql, args
	return pgconn.CommandTag{}, c.err
}

func (c *recordingConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, c.err
}

func TestRecordNetworkBuild(t *testing.T) {
	conn := &recordingConn{}
	err := RecordNetworkBuild(context.Background(), 120, 340, false, 1500*time.Millisecond, SourceWorker, conn)
	if err != nil {
		t.Fatalf("RecordNetworkBuild: %v", err)
	}
	if conn.sql != recordBuildSQL {
		t.Fatalf("unexpected statement %q", conn.sql)
	}
	want := []any{int32(120), int32(340), false, int64(1500), SourceWorker}
	if !reflect.DeepEqual(conn.args, want) {
		t.Fatalf("args = %#v, want %#v", conn.args, want)
	}
}

func TestTimingErrorsWrapped(t *testing.T) {
	boom := errors.New("boom")
	conn := &recordingConn{err: boom}
	if err := RecordNetworkBuild(context.Background(), 1, 1, true, time.Second, SourceCLI, conn); !errors.Is(err, boom) {
		t.Fatalf("record error = %v", err)
	}
	if _, err := LatestNetworkBuild(context.Background(), conn); !errors.Is(err, boom) {
		t.Fatalf("latest error = %v", err)
	}
}
