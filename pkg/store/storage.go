package store

import (
	"context"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/common"
)

// OpinionStore resolves opinion identifiers to their metadata.
type OpinionStore interface {
	// GetOpinion returns common.ErrNotFound when the opinion does not exist.
	GetOpinion(ctx context.Context, id int64) (common.Opinion, error)
	// GetOpinions returns the opinions that exist, in the order requested.
	GetOpinions(ctx context.Context, ids []int64) ([]common.Opinion, error)
}

// CaseSimilarityLookup ranks the opinions most similar to a group of
// opinions. Members of the group are never part of the result.
type CaseSimilarityLookup interface {
	CaseSimilarity(ctx context.Context, ids []int64, limit int) ([]common.SimilarityRecord, error)
}

// CaseStorage is everything the service needs from its database.
type CaseStorage interface {
	citation.EdgeSource
	OpinionStore
	CaseSimilarityLookup
}
