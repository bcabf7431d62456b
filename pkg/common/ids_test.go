package common

import (
	"errors"
	"reflect"
	"testing"
)

func TestUniqueIDs(t *testing.T) {
	got, err := UniqueIDs([]int64{3, 1, 3, 2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Fatalf("expected [3 1 2], got %v", got)
	}
}

func TestUniqueIDs_Empty(t *testing.T) {
	for _, ids := range [][]int64{nil, {}} {
		if _, err := UniqueIDs(ids); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", ids, err)
		}
	}
}
