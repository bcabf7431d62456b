package common

import "fmt"

// UniqueIDs removes duplicate opinion IDs while keeping first-seen order. The
// order of the result is the order clustering labels are aligned with.
func UniqueIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one opinion id is required", ErrInvalidInput)
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
