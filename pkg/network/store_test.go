package network

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "network.json.gz")
	s := NewFileStore(path)

	if _, err := s.Load(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
	if err := s.Save(ctx, []byte("one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, []byte("two")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("data = %q, want %q", data, "two")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFileStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore(filepath.Join(t.TempDir(), "n.gz"))
	if err := s.Save(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTieredStoreLoad(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		tiers    []SnapshotStore
		want     []byte
		notFound bool
		failed   bool
	}{
		{
			name:  "first tier wins",
			tiers: []SnapshotStore{&memStore{data: []byte("a")}, &memStore{data: []byte("b")}},
			want:  []byte("a"),
		},
		{
			name:  "falls through missing tier",
			tiers: []SnapshotStore{&memStore{}, &memStore{data: []byte("b")}},
			want:  []byte("b"),
		},
		{
			name:  "falls through failing tier",
			tiers: []SnapshotStore{&memStore{loadErr: errBoom}, &memStore{data: []byte("b")}},
			want:  []byte("b"),
		},
		{
			name:     "nothing stored",
			tiers:    []SnapshotStore{&memStore{}, nil, &memStore{}},
			notFound: true,
		},
		{
			name:   "failure beats not found",
			tiers:  []SnapshotStore{&memStore{}, &memStore{loadErr: errBoom}},
			failed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := NewTieredStore(tt.tiers...).Load(ctx)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrSnapshotNotFound) {
					t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
				}
			case tt.failed:
				if !errors.Is(err, errBoom) || errors.Is(err, ErrSnapshotNotFound) {
					t.Fatalf("expected errBoom, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				if !bytes.Equal(data, tt.want) {
					t.Fatalf("data = %q, want %q", data, tt.want)
				}
			}
		})
	}
}

func TestTieredStoreSave(t *testing.T) {
	a, b := &memStore{}, &memStore{}
	if err := NewTieredStore(a, b).Save(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if string(a.data) != "x" || string(b.data) != "x" {
		t.Fatalf("tiers not written: %q %q", a.data, b.data)
	}

	failing := &memStore{saveErr: errBoom}
	ok := &memStore{}
	if err := NewTieredStore(failing, ok).Save(context.Background(), []byte("y")); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if string(ok.data) != "y" {
		t.Fatalf("healthy tier not written after sibling failure: %q", ok.data)
	}
}

type cancelAwareStore struct {
	memStore
}

func (s *cancelAwareStore) Save(ctx context.Context, data []byte) error {
	time.Sleep(20 * time.Millisecond)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memStore.Save(ctx, data)
}

func TestTieredStoreSaveIndependentTiers(t *testing.T) {
	slow := &cancelAwareStore{}
	err := NewTieredStore(&memStore{saveErr: errBoom}, slow).Save(context.Background(), []byte("z"))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if string(slow.data) != "z" {
		t.Fatalf("slow tier aborted by failing sibling: %q", slow.data)
	}
}

func encodeAt(t *testing.T, directed bool, at time.Time) []byte {
	t.Helper()
	n := buildTestNetwork(t, directed)
	n.BuiltAt = at
	data, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestTieredStoreLoadLatest(t *testing.T) {
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	oldData, newData := encodeAt(t, false, older), encodeAt(t, true, newer)

	tests := []struct {
		name      string
		local     *memStore
		remote    *memStore
		want      []byte
		notFound  bool
		failed    bool
		wantLocal []byte
	}{
		{
			name:      "newer remote replaces stale local",
			local:     &memStore{data: oldData},
			remote:    &memStore{data: newData},
			want:      newData,
			wantLocal: newData,
		},
		{
			name:      "newer local kept",
			local:     &memStore{data: newData},
			remote:    &memStore{data: oldData},
			want:      newData,
			wantLocal: newData,
		},
		{
			name:      "missing local filled",
			local:     &memStore{},
			remote:    &memStore{data: newData},
			want:      newData,
			wantLocal: newData,
		},
		{
			name:      "corrupt remote skipped",
			local:     &memStore{data: oldData},
			remote:    &memStore{data: []byte("garbage")},
			want:      oldData,
			wantLocal: oldData,
		},
		{
			name:     "nothing stored",
			local:    &memStore{},
			remote:   &memStore{},
			notFound: true,
		},
		{
			name:   "only failures",
			local:  &memStore{},
			remote: &memStore{loadErr: errBoom},
			failed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := NewTieredStore(tt.local, tt.remote).LoadLatest(ctx)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrSnapshotNotFound) {
					t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
				}
			case tt.failed:
				if !errors.Is(err, errBoom) {
					t.Fatalf("expected errBoom, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("LoadLatest: %v", err)
				}
				if !bytes.Equal(data, tt.want) {
					t.Fatalf("LoadLatest returned the wrong snapshot")
				}
				if !bytes.Equal(tt.local.data, tt.wantLocal) {
					t.Fatalf("local tier holds the wrong snapshot")
				}
			}
		})
	}
}
