package usecase

import (
	"sort"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// fuseRRF merges the dense and lexical result lists with reciprocal rank
// fusion: every chunk scores the sum of 1/(K+rank) over the lists it
// appears in, ranks 1-based. A chunk present in both lists appears exactly
// once in the output. Candidates matching the ticker hint get a constant
// additive boost, which keeps the relative order inside both the matching
// and non-matching groups intact.
func fuseRRF(
	retriever ports.Retriever,
	dense, lexical []domain.Hit,
	rrfK int,
	tickerHint string,
	tickerBias float64,
) []domain.ScoredCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*domain.ScoredCandidate, len(dense)+len(lexical))
	resolve := func(id string) (*domain.ScoredCandidate, bool) {
		if c, ok := acc[id]; ok {
			return c, true
		}
		chunk, ok := retriever.ChunkByID(id)
		if !ok {
			return nil, false
		}
		c := &domain.ScoredCandidate{Chunk: chunk}
		acc[id] = c
		return c, true
	}

	for i, hit := range dense {
		c, ok := resolve(hit.ChunkID)
		if !ok {
			continue
		}
		c.DenseRank = i + 1
		c.FusedScore += 1.0 / float64(rrfK+i+1)
	}
	for i, hit := range lexical {
		c, ok := resolve(hit.ChunkID)
		if !ok {
			continue
		}
		c.LexicalRank = i + 1
		c.FusedScore += 1.0 / float64(rrfK+i+1)
	}

	out := make([]domain.ScoredCandidate, 0, len(acc))
	for _, c := range acc {
		if tickerBias > 0 && c.MatchesTicker(tickerHint) {
			c.FusedScore += tickerBias
		}
		out = append(out, *c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if ri, rj := out[i].BestRank(), out[j].BestRank(); ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
