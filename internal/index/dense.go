package index

import (
	"math"
	"sort"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// denseIndex is an exact inner-product index over normalized passage
// vectors. The corpus is small enough that a flat scan beats the
// bookkeeping of an approximate structure, and exactness keeps ranking
// deterministic: ties resolve by insertion order.
type denseIndex struct {
	ids     []string
	vectors [][]float32
}

func newDenseIndex(ids []string, vectors [][]float32) *denseIndex {
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = normalize(v)
	}
	return &denseIndex{ids: ids, vectors: normalized}
}

func (d *denseIndex) search(queryVector []float32, k int) []domain.Hit {
	if len(d.ids) == 0 || len(queryVector) == 0 {
		return nil
	}
	query := normalize(queryVector)

	scored := make([]domain.Hit, 0, len(d.ids))
	for i, v := range d.vectors {
		scored = append(scored, domain.Hit{ChunkID: d.ids[i], Score: dot(query, v)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
