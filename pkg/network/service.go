package network

import (
	"context"
	"fmt"
	"time"

	"github.com/casegraph/backend/pkg/cluster"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/metrics"
	"github.com/casegraph/backend/pkg/store"
)

// DefaultMaxIDs caps the opinions per request. Dense eigendecompositions grow
// cubically with the subset size.
const DefaultMaxIDs = 500

// ClusterRequest selects the clustering method and its parameters. Eps is
// used by DBSCAN and defaults to cluster.DefaultEps. NumClusters is used by
// spectral clustering, where 0 selects the count automatically.
type ClusterRequest struct {
	Method      cluster.Method
	Eps         float64
	NumClusters int
}

// Service is the entry point for similar-case lookups and clustering.
type Service struct {
	holder   *Holder
	lookup   store.CaseSimilarityLookup
	opinions store.OpinionStore
	maxIDs   int
	metrics  *metrics.Metrics
}

type ServiceOption func(*Service)

// WithMaxIDs overrides DefaultMaxIDs. A non-positive value removes the cap.
func WithMaxIDs(n int) ServiceOption {
	return func(s *Service) {
		s.maxIDs = n
	}
}

func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the service. lookup ranks similar cases and opinions
// resolves records that arrive without their comparison opinion.
func NewService(holder *Holder, lookup store.CaseSimilarityLookup, opinions store.OpinionStore, opts ...ServiceOption) *Service {
	s := &Service{
		holder:   holder,
		lookup:   lookup,
		opinions: opinions,
		maxIDs:   DefaultMaxIDs,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *Service) validate(ids []int64) ([]int64, error) {
	ids, err := common.UniqueIDs(ids)
	if err != nil {
		return nil, err
	}
	if s.maxIDs > 0 && len(ids) > s.maxIDs {
		return nil, fmt.Errorf("%w: %d opinions requested, at most %d allowed", common.ErrInvalidInput, len(ids), s.maxIDs)
	}
	return ids, nil
}

// SimilarToGroup returns the comparison opinions most similar to the group,
// best first. A limit <= 0 returns all of them.
func (s *Service) SimilarToGroup(ctx context.Context, ids []int64, limit int) ([]common.Opinion, error) {
	opinions, err := s.similarToGroup(ctx, ids, limit)
	s.metrics.RecordSimilar(metrics.Status(err))
	return opinions, err
}

func (s *Service) similarToGroup(ctx context.Context, ids []int64, limit int) ([]common.Opinion, error) {
	ids, err := s.validate(ids)
	if err != nil {
		return nil, err
	}
	records, err := s.lookup.CaseSimilarity(ctx, ids, limit)
	if err != nil {
		return nil, err
	}

	var missing []int64
	for _, r := range records {
		if r.Comparison == nil {
			missing = append(missing, r.OpinionB)
		}
	}
	resolved := make(map[int64]common.Opinion, len(missing))
	if len(missing) > 0 {
		found, err := s.opinions.GetOpinions(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, o := range found {
			resolved[o.ResourceID] = o
		}
	}

	out := make([]common.Opinion, 0, len(records))
	for _, r := range records {
		if r.Comparison != nil {
			out = append(out, *r.Comparison)
			continue
		}
		if o, ok := resolved[r.OpinionB]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Cluster partitions the opinions with the requested method against the
// current network.
func (s *Service) Cluster(ctx context.Context, ids []int64, req ClusterRequest) (*cluster.Result, error) {
	start := time.Now()
	res, err := s.cluster(ctx, ids, req)
	s.metrics.RecordCluster(string(req.Method), metrics.Status(err), len(ids), time.Since(start))
	return res, err
}

func (s *Service) cluster(ctx context.Context, ids []int64, req ClusterRequest) (*cluster.Result, error) {
	ids, err := s.validate(ids)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.holder.Current()
	if n == nil {
		return nil, ErrNotReady
	}

	switch req.Method {
	case cluster.MethodDBSCAN, "":
		eps := req.Eps
		if eps == 0 {
			eps = cluster.DefaultEps
		}
		return n.Clusters.DBSCAN(ids, eps)
	case cluster.MethodSpectral:
		return n.Clusters.Spectral(ids, req.NumClusters)
	}
	return nil, fmt.Errorf("%w: unknown cluster method %q", common.ErrInvalidInput, req.Method)
}
