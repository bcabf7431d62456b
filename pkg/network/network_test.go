package network

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/casegraph/backend/pkg/common"
)

var testCitations = []common.Citation{
	{CitingOpinionID: 1, CitedOpinionID: 2, Depth: 1},
	{CitingOpinionID: 2, CitedOpinionID: 3, Depth: 2},
	{CitingOpinionID: 1, CitedOpinionID: 3, Depth: 1},
	{CitingOpinionID: 4, CitedOpinionID: 5, Depth: 1},
	{CitingOpinionID: 6, CitedOpinionID: 6, Depth: 1},
}

// fakeSource counts how often the network was constructed.
type fakeSource struct {
	citations []common.Citation
	err       error
	calls     atomic.Int32
}

func (s *fakeSource) Citations(ctx context.Context) ([]common.Citation, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.citations, nil
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.data == nil {
		return nil, ErrSnapshotNotFound
	}
	return s.data, nil
}

func (s *memStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = data
	return nil
}

var errBoom = errors.New("boom")
