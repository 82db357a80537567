package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// rerankCandidates re-scores the head of the fused list with a pointwise
// blend of the normalized fused score, question-token overlap with the
// chunk text, and a ticker-hit term. The tail keeps its fused order. An
// empty head passes through unchanged.
func rerankCandidates(question, tickerHint string, fused []domain.ScoredCandidate, topN int) []domain.ScoredCandidate {
	if len(fused) == 0 {
		return fused
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}

	head := make([]domain.ScoredCandidate, topN)
	copy(head, fused[:topN])
	queryTokens := toTokenSet(question + " " + tickerHint)

	minScore := head[0].FusedScore
	maxScore := head[0].FusedScore
	for _, c := range head[1:] {
		if c.FusedScore < minScore {
			minScore = c.FusedScore
		}
		if c.FusedScore > maxScore {
			maxScore = c.FusedScore
		}
	}

	rangeScore := maxScore - minScore
	normalize := func(v float64) float64 {
		if rangeScore <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / rangeScore
	}

	for i := range head {
		overlap := tokenOverlap(queryTokens, toTokenSet(head[i].Text))
		tickerHit := 0.0
		if head[i].MatchesTicker(tickerHint) {
			tickerHit = 1.0
		}
		head[i].FusedScore = 0.60*normalize(head[i].FusedScore) + 0.30*overlap + 0.10*tickerHit
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].FusedScore != head[j].FusedScore {
			return head[i].FusedScore > head[j].FusedScore
		}
		if ri, rj := head[i].BestRank(), head[j].BestRank(); ri != rj {
			return ri < rj
		}
		return head[i].ID < head[j].ID
	})

	if topN == len(fused) {
		return head
	}

	out := make([]domain.ScoredCandidate, 0, len(fused))
	out = append(out, head...)
	out = append(out, fused[topN:]...)
	return out
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
