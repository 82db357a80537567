package domain

import (
	"fmt"
	"strings"
)

// Chunk is an immutable unit of filing text produced by the external
// ingestion pipeline. The core never mutates it.
type Chunk struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Form      string   `json:"form"`
	Period    string   `json:"period,omitempty"`
	Source    string   `json:"source,omitempty"`
	Text      string   `json:"text"`
	TableRefs []string `json:"tables,omitempty"`
}

// Hit is a single ranked result from one index.
type Hit struct {
	ChunkID string
	Score   float64
}

// ScoredCandidate is a chunk with its fused score and the 1-based rank it
// held in each input list (0 when absent from that list). Per-question
// lifetime only.
type ScoredCandidate struct {
	Chunk
	FusedScore  float64
	DenseRank   int
	LexicalRank int
}

// BestRank returns the candidate's best (lowest) rank across both input
// lists, used as the first tie-breaker after the fused score.
func (c ScoredCandidate) BestRank() int {
	switch {
	case c.DenseRank == 0:
		return c.LexicalRank
	case c.LexicalRank == 0 || c.DenseRank < c.LexicalRank:
		return c.DenseRank
	default:
		return c.LexicalRank
	}
}

// MatchesTicker reports whether the chunk belongs to the hinted company.
func (c Chunk) MatchesTicker(hint string) bool {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return false
	}
	return strings.EqualFold(c.Ticker, hint)
}

// EncodePassage renders a chunk for embedding with lightweight metadata so
// dense retrieval can tell apart otherwise similar passages from different
// companies and form types.
func EncodePassage(c Chunk) string {
	return fmt.Sprintf("passage: [TICKER: %s] [FORM: %s] %s", strings.ToUpper(c.Ticker), c.Form, c.Text)
}

// EncodeQuery renders a question for embedding, annotated with the ticker
// hint when one is supplied.
func EncodeQuery(question, tickerHint string) string {
	q := "query: " + question
	if hint := strings.TrimSpace(tickerHint); hint != "" {
		q = fmt.Sprintf("%s [TICKER: %s]", q, strings.ToUpper(hint))
	}
	return q
}

// LexicalDocument renders a chunk for the lexical index. Ticker and form
// tokens are included so exact symbol matches score.
func LexicalDocument(c Chunk) string {
	return fmt.Sprintf("%s %s %s", c.Ticker, c.Form, c.Text)
}
