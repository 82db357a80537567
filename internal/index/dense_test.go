package index

import (
	"math"
	"testing"
)

func TestDenseSearchRanksByInnerProduct(t *testing.T) {
	idx := newDenseIndex(
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0},
			{0, 1},
			{0.7, 0.7},
		},
	)

	hits := idx.search([]float32{1, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "a" {
		t.Fatalf("best hit = %s", hits[0].ChunkID)
	}
	if hits[1].ChunkID != "c" {
		t.Fatalf("second hit = %s", hits[1].ChunkID)
	}
}

func TestDenseSearchNormalizesMagnitude(t *testing.T) {
	// Same direction, wildly different magnitudes, must score equally.
	idx := newDenseIndex(
		[]string{"small", "large"},
		[][]float32{
			{0.001, 0.001},
			{100, 100},
		},
	)
	hits := idx.search([]float32{1, 1}, 0)
	if math.Abs(hits[0].Score-hits[1].Score) > 1e-6 {
		t.Fatalf("scores differ after normalization: %v vs %v", hits[0].Score, hits[1].Score)
	}
	// Equal scores keep insertion order.
	if hits[0].ChunkID != "small" {
		t.Fatalf("tie order = %s first", hits[0].ChunkID)
	}
}

func TestDenseSearchEmptyInputs(t *testing.T) {
	idx := newDenseIndex(nil, nil)
	if got := idx.search([]float32{1}, 5); got != nil {
		t.Fatalf("empty index returned %v", got)
	}

	idx = newDenseIndex([]string{"a"}, [][]float32{{1}})
	if got := idx.search(nil, 5); got != nil {
		t.Fatalf("empty query returned %v", got)
	}
}

func TestDot(t *testing.T) {
	if got := dot([]float32{1, 2, 3}, []float32{4, 5, 6}); got != 32 {
		t.Fatalf("dot = %v", got)
	}
	// Mismatched lengths use the shorter side.
	if got := dot([]float32{1, 2}, []float32{3}); got != 3 {
		t.Fatalf("dot = %v", got)
	}
}
