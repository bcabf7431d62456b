package network

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSnapshotNotFound is returned by a SnapshotStore that holds no snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists encoded snapshots.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileStore keeps the snapshot in a single file on local disk.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.Path, err)
	}
	return data, nil
}

// Save writes to a temporary file next to the target and renames it into
// place, so readers never observe a partial snapshot.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// TieredStore layers several stores, typically local disk in front of S3.
// Load returns the first tier holding a snapshot; Save writes every tier.
type TieredStore struct {
	tiers []SnapshotStore
}

// NewTieredStore ignores nil tiers.
func NewTieredStore(tiers ...SnapshotStore) *TieredStore {
	t := &TieredStore{}
	for _, s := range tiers {
		if s != nil {
			t.tiers = append(t.tiers, s)
		}
	}
	return t
}

// Load returns ErrSnapshotNotFound only when no tier has a snapshot and none
// failed. Otherwise the errors of the failed tiers are joined.
func (t *TieredStore) Load(ctx context.Context) ([]byte, error) {
	var errs []error
	for i, s := range t.tiers {
		data, err := s.Load(ctx)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrSnapshotNotFound) {
			continue
		}
		log.Warn("Snapshot tier failed to load", "tier", i, "err", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrSnapshotNotFound
}

// LoadLatest reads every tier and returns the snapshot built most recently.
// Tiers that miss it or hold an older one are rewritten on a best-effort
// basis, so a newer remote snapshot replaces a stale local file. Unreadable
// tiers are skipped; errors surface only when no tier yields a snapshot.
func (t *TieredStore) LoadLatest(ctx context.Context) ([]byte, error) {
	var (
		errs   []error
		latest []byte
		at     time.Time
		found  = -1
		stale  = make([]bool, len(t.tiers))
	)
	for i, s := range t.tiers {
		data, err := s.Load(ctx)
		if errors.Is(err, ErrSnapshotNotFound) {
			stale[i] = true
			continue
		}
		if err == nil {
			var snap *Snapshot
			if snap, err = Decode(data); err == nil {
				if found < 0 || snap.BuiltAt.After(at) {
					for j := range i {
						stale[j] = true
					}
					latest, at, found = data, snap.BuiltAt, i
				} else if snap.BuiltAt.Before(at) {
					stale[i] = true
				}
				continue
			}
		}
		log.Warn("Snapshot tier failed to load", "tier", i, "err", err)
		errs = append(errs, err)
	}
	if found < 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrSnapshotNotFound
	}
	for i, s := range t.tiers {
		if !stale[i] || i == found {
			continue
		}
		if err := s.Save(ctx, latest); err != nil {
			log.Warn("Rewriting stale snapshot tier failed", "tier", i, "err", err)
		}
	}
	return latest, nil
}

// Save writes every tier independently, so one failing tier does not abort
// the others. The failures are joined.
func (t *TieredStore) Save(ctx context.Context, data []byte) error {
	var (
		eg   errgroup.Group
		errs = make([]error, len(t.tiers))
	)
	for i, s := range t.tiers {
		eg.Go(func() error {
			errs[i] = s.Save(ctx, data)
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}
