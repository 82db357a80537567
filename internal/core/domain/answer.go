package domain

import "strings"

// Question is the inbound request to the pipeline.
type Question struct {
	Text       string `json:"question"`
	TickerHint string `json:"ticker,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

type CitationKind string

const (
	CitationText  CitationKind = "text"
	CitationQuery CitationKind = "query"
)

// Citation is either a quoted span from a filing chunk or an executable
// query with a preview of its result. Query citations are captured even
// when execution failed, with Errored set, so the trail stays auditable.
type Citation struct {
	Kind    CitationKind `json:"kind"`
	Marker  string       `json:"marker"`
	ChunkID string       `json:"chunk_id,omitempty"`
	Quote   string       `json:"quote,omitempty"`
	SQL     string       `json:"sql,omitempty"`
	Preview string       `json:"preview,omitempty"`
	Errored bool         `json:"errored,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Claim is one atomic statement from the draft answer with the citation
// markers that back it.
type Claim struct {
	Text    string   `json:"text"`
	DocRefs []string `json:"doc_refs,omitempty"`
	SQLRefs []string `json:"sql_refs,omitempty"`
}

// Answer is the verified response for a single question. Immutable once
// the verifier has scored it.
type Answer struct {
	ID            string     `json:"answer_id"`
	Text          string     `json:"answer_text"`
	Claims        []Claim    `json:"claims,omitempty"`
	Citations     []Citation `json:"citations"`
	Faithfulness  float64    `json:"faithfulness_score"`
	Abstained     bool       `json:"abstained"`
	VerdictDetail string     `json:"verdict_detail,omitempty"`

	// Diagnostics for logs and metrics, not part of the API response.
	PlanSource PlanSource `json:"-"`
	Evidence   int        `json:"-"`
}

// AbstentionMessage replaces the draft text whenever the gate abstains.
const AbstentionMessage = "Not enough supported evidence to answer confidently."

type PlanSource string

const (
	PlanIntent   PlanSource = "intent"
	PlanModel    PlanSource = "model"
	PlanFallback PlanSource = "fallback"
)

// QueryPlan is a read-only analytical query bound for execution. SQL is
// kept verbatim so a human can re-run it.
type QueryPlan struct {
	ID        string     `json:"id"`
	SQL       string     `json:"sql"`
	Rationale string     `json:"rationale,omitempty"`
	Source    PlanSource `json:"source,omitempty"`
}

// Column describes one typed column of an analytical table.
type Column struct {
	Name string
	Type string
}

// TableSchema is the discovered shape of one analytical table.
type TableSchema struct {
	Name    string
	Columns []Column
}

// Column reports whether the schema has a column with the given name,
// compared case-insensitively, returning its exact stored name.
func (t TableSchema) Column(name string) (string, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.Name, true
		}
	}
	return "", false
}

// ResultSet is an executed query result rendered to strings for previews.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}
