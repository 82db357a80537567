package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index ranks chunks by Okapi BM25 over lowercase alphanumeric
// tokens. Scoring is deterministic for a fixed corpus; ties resolve by
// insertion order.
type bm25Index struct {
	ids       []string
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

func newBM25Index(ids []string, documents []string) *bm25Index {
	idx := &bm25Index{
		ids:       ids,
		termFreqs: make([]map[string]int, len(documents)),
		docLens:   make([]int, len(documents)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, doc := range documents {
		tokens := tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for t := range tf {
			idx.docFreq[t]++
		}
	}
	if len(documents) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(documents))
	}
	return idx
}

func (b *bm25Index) search(query string, k int) []domain.Hit {
	if len(b.ids) == 0 {
		return nil
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	n := float64(len(b.ids))
	hits := make([]domain.Hit, 0, len(b.ids))
	for i := range b.ids {
		var score float64
		dl := float64(b.docLens[i])
		for _, t := range queryTokens {
			tf := float64(b.termFreqs[i][t])
			if tf == 0 {
				continue
			}
			df := float64(b.docFreq[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			denom := tf + bm25K1*(1-bm25B+bm25B*dl/b.avgDocLen)
			score += idf * tf * (bm25K1 + 1) / denom
		}
		if score > 0 {
			hits = append(hits, domain.Hit{ChunkID: b.ids[i], Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
