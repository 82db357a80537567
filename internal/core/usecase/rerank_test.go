package usecase

import (
	"testing"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

func TestRerankPromotesQuestionOverlap(t *testing.T) {
	fused := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{ID: "off-topic", Ticker: "AAPL", Text: "Liquidity and capital resources discussion."}, FusedScore: 0.033},
		{Chunk: domain.Chunk{ID: "on-topic", Ticker: "AAPL", Text: "iPhone revenue increased due to higher net sales."}, FusedScore: 0.033},
	}

	got := rerankCandidates("How did iPhone revenue change?", "AAPL", fused, 2)
	if got[0].ID != "on-topic" {
		t.Fatalf("expected on-topic chunk promoted, got %s first", got[0].ID)
	}
}

func TestRerankKeepsTailOrder(t *testing.T) {
	fused := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{ID: "h1", Text: "iPhone revenue"}, FusedScore: 0.04},
		{Chunk: domain.Chunk{ID: "h2", Text: "services revenue"}, FusedScore: 0.03},
		{Chunk: domain.Chunk{ID: "t1"}, FusedScore: 0.02},
		{Chunk: domain.Chunk{ID: "t2"}, FusedScore: 0.01},
	}

	got := rerankCandidates("iPhone revenue", "", fused, 2)
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(got))
	}
	if got[2].ID != "t1" || got[3].ID != "t2" {
		t.Fatalf("tail reordered: %s, %s", got[2].ID, got[3].ID)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	if got := rerankCandidates("q", "", nil, 5); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestRerankTopNBeyondLength(t *testing.T) {
	fused := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{ID: "only", Text: "revenue"}, FusedScore: 0.05},
	}
	got := rerankCandidates("revenue", "", fused, 12)
	if len(got) != 1 || got[0].ID != "only" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestTokenOverlap(t *testing.T) {
	query := toTokenSet("How did iPhone revenue change")
	chunk := toTokenSet("iPhone revenue increased")
	if got := tokenOverlap(query, chunk); got <= 0 {
		t.Fatalf("expected positive overlap, got %v", got)
	}
	if got := tokenOverlap(query, toTokenSet("")); got != 0 {
		t.Fatalf("empty chunk overlap = %v", got)
	}
}

func TestSplitAlphaNumLower(t *testing.T) {
	got := splitAlphaNumLower("iPhone 14 Pro, net-sales!")
	want := []string{"iphone", "14", "pro", "net", "sales"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}
