package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
)

const defaultChunkSize = 1000

const (
	citationsQuery = `
SELECT citing_opinion_id, cited_opinion_id, depth
FROM citation
ORDER BY id`

	opinionColumns = `
resource_id,
COALESCE(case_name, '') AS case_name,
COALESCE(court, '') AS court,
decision_date,
volume,
COALESCE(reporter, '') AS reporter,
page`

	opinionQuery  = `SELECT ` + opinionColumns + ` FROM opinion WHERE resource_id = $1`
	opinionsQuery = `SELECT ` + opinionColumns + ` FROM opinion WHERE resource_id = ANY($1)`

	caseSimilarityQuery = `
WITH ranked AS (
	SELECT opinion_b_id, SUM(similarity_index) AS score
	FROM case_similarity
	WHERE opinion_a_id = ANY($1) AND NOT (opinion_b_id = ANY($1))
	GROUP BY opinion_b_id
	ORDER BY score DESC, opinion_b_id
	LIMIT $2
)
SELECT r.opinion_b_id, r.score,
	o.resource_id,
	COALESCE(o.case_name, ''),
	COALESCE(o.court, ''),
	o.decision_date,
	o.volume,
	COALESCE(o.reporter, ''),
	o.page
FROM ranked r
JOIN opinion o ON o.resource_id = r.opinion_b_id
ORDER BY r.score DESC, r.opinion_b_id`
)

// CaseStore reads opinions, citations and precomputed case similarities
// from PostgreSQL. It implements store.CaseStorage.
type CaseStore struct {
	conn      pgxIConn
	chunkSize int
}

var _ store.CaseStorage = (*CaseStore)(nil)

type CaseStoreOption func(*CaseStore)

// WithChunkSize bounds how many ids are sent in one ANY($1) lookup.
func WithChunkSize(n int) CaseStoreOption {
	return func(s *CaseStore) {
		s.chunkSize = n
	}
}

// NewCaseStore creates a CaseStore on top of an existing connection or pool.
func NewCaseStore(conn pgxIConn, opts ...CaseStoreOption) *CaseStore {
	s := &CaseStore{
		conn:      conn,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Citations returns every citation record in insertion order, which the
// graph relies on for last-write-wins edge weights.
func (s *CaseStore) Citations(ctx context.Context) ([]common.Citation, error) {
	rows, err := s.conn.Query(ctx, citationsQuery)
	if err != nil {
		return nil, fmt.Errorf("query citations: %w", err)
	}
	citations, err := pgxv5.CollectRows(rows, pgxv5.RowToStructByName[common.Citation])
	if err != nil {
		return nil, fmt.Errorf("scan citations: %w", err)
	}
	return citations, nil
}

func (s *CaseStore) GetOpinion(ctx context.Context, id int64) (common.Opinion, error) {
	rows, err := s.conn.Query(ctx, opinionQuery, id)
	if err != nil {
		return common.Opinion{}, fmt.Errorf("query opinion %d: %w", id, err)
	}
	op, err := pgxv5.CollectExactlyOneRow(rows, pgxv5.RowToStructByName[common.Opinion])
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Opinion{}, fmt.Errorf("opinion %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return common.Opinion{}, fmt.Errorf("scan opinion %d: %w", id, err)
	}
	return op, nil
}

func (s *CaseStore) GetOpinions(ctx context.Context, ids []int64) ([]common.Opinion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found := make([]common.Opinion, 0, len(ids))
	err := store.ChunkRange(len(ids), s.chunkSize, func(start, end int) error {
		rows, err := s.conn.Query(ctx, opinionsQuery, ids[start:end])
		if err != nil {
			return fmt.Errorf("query opinions: %w", err)
		}
		batch, err := pgxv5.CollectRows(rows, pgxv5.RowToStructByName[common.Opinion])
		if err != nil {
			return fmt.Errorf("scan opinions: %w", err)
		}
		found = append(found, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, found, opinionID), nil
}

// CaseSimilarity sums the precomputed similarity of every candidate to the
// members of the group and returns the best candidates with their opinion
// attached. A limit <= 0 returns every candidate.
func (s *CaseStore) CaseSimilarity(ctx context.Context, ids []int64, limit int) ([]common.SimilarityRecord, error) {
	ids, err := common.UniqueIDs(ids)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, caseSimilarityQuery, ids, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("query case similarity: %w", err)
	}
	records, err := pgxv5.CollectRows(rows, scanSimilarityRecord)
	if err != nil {
		return nil, fmt.Errorf("scan case similarity: %w", err)
	}
	return records, nil
}

func scanSimilarityRecord(row pgxv5.CollectableRow) (common.SimilarityRecord, error) {
	var (
		rec common.SimilarityRecord
		op  common.Opinion
	)
	err := row.Scan(
		&rec.OpinionB,
		&rec.Score,
		&op.ResourceID,
		&op.CaseName,
		&op.Court,
		&op.DecisionDate,
		&op.Volume,
		&op.Reporter,
		&op.Page,
	)
	if err != nil {
		return common.SimilarityRecord{}, err
	}
	rec.Comparison = &op
	return rec, nil
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func opinionID(o common.Opinion) int64 { return o.ResourceID }
