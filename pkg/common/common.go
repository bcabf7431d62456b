package common

import (
	"fmt"
	"time"
)

// Opinion represents a single judicial opinion (a "case"). The resource ID is
// assigned by the upstream corpus and is the only identity the citation
// network knows about.
type Opinion struct {
	ResourceID   int64      `json:"resource_id" db:"resource_id"`
	CaseName     string     `json:"case_name" db:"case_name"`
	Court        string     `json:"court" db:"court"`
	DecisionDate *time.Time `json:"decision_date,omitempty" db:"decision_date"`
	Volume       *int32     `json:"volume,omitempty" db:"volume"`
	Reporter     string     `json:"reporter" db:"reporter"`
	Page         *int32     `json:"page,omitempty" db:"page"`
}

// ReporterCitation formats the opinion's reporter citation, e.g. "347 U.S. 483".
// It returns an empty string when the opinion has no reporter information.
func (o Opinion) ReporterCitation() string {
	if o.Volume == nil || o.Page == nil || o.Reporter == "" {
		return ""
	}
	return fmt.Sprintf("%d %s %d", *o.Volume, o.Reporter, *o.Page)
}

// Citation is a raw citation record as stored by the corpus: the citing
// opinion references the cited opinion at the given depth.
//
// Depth is the citation distance. 1 is a direct citation and larger values
// are indirect. It must be positive.
type Citation struct {
	CitingOpinionID int64 `json:"citing_opinion_id" db:"citing_opinion_id"`
	CitedOpinionID  int64 `json:"cited_opinion_id" db:"cited_opinion_id"`
	Depth           int32 `json:"depth" db:"depth"`
}

// Edge is a collapsed edge of the citation graph. Weight is 1/depth of the
// last citation record seen for the pair.
type Edge struct {
	From   int64   `json:"from"`
	To     int64   `json:"to"`
	Weight float64 `json:"weight"`
}

// SimilarityRecord links a queried opinion to a comparison opinion that is
// similar to it. OpinionA may be zero when the record was aggregated over a
// whole group of opinions.
type SimilarityRecord struct {
	OpinionA   int64    `json:"opinion_a,omitempty"`
	OpinionB   int64    `json:"opinion_b"`
	Score      float64  `json:"score"`
	Comparison *Opinion `json:"comparison,omitempty"`
}
