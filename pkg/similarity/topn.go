package similarity

import (
	"cmp"
	"slices"
)

// Scored is an opinion with its aggregated similarity score.
type Scored struct {
	ID    int64
	Score float64
}

// TopN returns the n highest scoring entries, best first. Ties are broken by
// ascending ID so the ranking is stable across calls. n <= 0 returns all.
func TopN(scores map[int64]float64, n int) []Scored {
	out := make([]Scored, 0, len(scores))
	for id, s := range scores {
		out = append(out, Scored{ID: id, Score: s})
	}
	slices.SortFunc(out, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
