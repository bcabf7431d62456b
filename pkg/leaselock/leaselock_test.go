package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.val
	return nil
}

// fakeDB emulates the network_locks table without expiry.
type fakeDB struct {
	mu      sync.Mutex
	holders map[string]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: make(map[string]string)}
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, holder := args[0].(string), args[1].(string)
	switch sql {
	case tryAcquireSQL:
		if cur, ok := f.holders[name]; ok && cur != holder {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.holders[name] = holder
		return fakeRow{val: name}
	case renewSQL:
		if f.holders[name] != holder {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: name}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sql == releaseSQL {
		name, holder := args[0].(string), args[1].(string)
		if f.holders[name] == holder {
			delete(f.holders, name)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) steal(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holders[name] = "someone-else"
}

func TestOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{
			name: "zero",
			in:   Options{},
			want: Options{TTL: defaultTTL, RenewEvery: defaultTTL / 2, WaitInterval: defaultWaitInterval},
		},
		{
			name: "renew not below ttl",
			in:   Options{TTL: 10 * time.Second, RenewEvery: 20 * time.Second},
			want: Options{TTL: 10 * time.Second, RenewEvery: 5 * time.Second, WaitInterval: defaultWaitInterval},
		},
		{
			name: "short ttl renews every second",
			in:   Options{TTL: 1500 * time.Millisecond},
			want: Options{TTL: 1500 * time.Millisecond, RenewEvery: time.Second, WaitInterval: defaultWaitInterval},
		},
		{
			name: "negative jitter",
			in:   Options{TTL: time.Minute, RenewEvery: time.Second, WaitJitter: -time.Second},
			want: Options{TTL: time.Minute, RenewEvery: time.Second, WaitInterval: defaultWaitInterval},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Fatalf("withDefaults = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAcquireBusyRelease(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeDB())

	first, err := c.Acquire(ctx, "rebuild", Options{HolderPrefix: "worker-1-"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := c.Acquire(ctx, "rebuild", Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if first.Context.Err() == nil {
		t.Fatalf("released lease context must be cancelled")
	}

	second, err := c.Acquire(ctx, "rebuild", Options{})
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer second.Release(ctx)
	if second.Holder == first.Holder {
		t.Fatalf("holders must differ")
	}
}

func TestAcquireEmptyName(t *testing.T) {
	if _, err := New(newFakeDB()).Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatalf("expected an error for an empty name")
	}
}

func TestAcquireWait(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeDB())
	first, err := c.Acquire(ctx, "rebuild", Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = first.Release(ctx)
	}()

	second, err := c.Acquire(ctx, "rebuild", Options{Wait: true, WaitInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("waiting Acquire: %v", err)
	}
	_ = second.Release(ctx)
}

func TestAcquireWaitCancelled(t *testing.T) {
	c := New(newFakeDB())
	if _, err := c.Acquire(context.Background(), "rebuild", Options{}); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "rebuild", Options{Wait: true, WaitInterval: 5 * time.Millisecond}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestLeaseLost(t *testing.T) {
	db := newFakeDB()
	lease, err := New(db).Acquire(context.Background(), "rebuild", Options{TTL: time.Second, RenewEvery: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	db.steal("rebuild")

	select {
	case <-lease.Context.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("lease context was not cancelled")
	}
	if cause := context.Cause(lease.Context); !errors.Is(cause, ErrLost) {
		t.Fatalf("cause = %v, want ErrLost", cause)
	}
}

func TestWithLease(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	ran := false
	err := c.WithLease(context.Background(), "rebuild", Options{}, func(ctx context.Context) error {
		ran = true
		if _, err := c.Acquire(ctx, "rebuild", Options{}); !errors.Is(err, ErrBusy) {
			t.Errorf("lease not held inside fn: %v", err)
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("WithLease = %v, ran = %v", err, ran)
	}
	if len(db.holders) != 0 {
		t.Fatalf("lease not released: %v", db.holders)
	}

	boom := errors.New("boom")
	if err := c.WithLease(context.Background(), "rebuild", Options{}, func(ctx context.Context) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
}

func TestWithLeaseLost(t *testing.T) {
	db := newFakeDB()
	err := New(db).WithLease(context.Background(), "rebuild", Options{TTL: time.Second, RenewEvery: 5 * time.Millisecond}, func(ctx context.Context) error {
		db.steal("rebuild")
		<-ctx.Done()
		return nil
	})
	if !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost, got %v", err)
	}
}
