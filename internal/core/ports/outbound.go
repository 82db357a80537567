package ports

import (
	"context"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// Embedder builds vectors for corpus passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatModel is the language-model interface used identically for drafting
// and judging. Transport failures surface as domain.ErrTemporary, distinct
// from parse errors raised by callers.
type ChatModel interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
	CompleteJSON(ctx context.Context, model, system, user string) (string, error)
}

// Retriever is one immutable retrieval snapshot. Both searches are
// read-only and side-effect-free; either may report
// domain.ErrRetrievalUnavailable when its index is unbuilt.
type Retriever interface {
	SearchDense(ctx context.Context, queryVector []float32, k int) ([]domain.Hit, error)
	SearchLexical(ctx context.Context, queryText string, k int) ([]domain.Hit, error)
	ChunkByID(id string) (domain.Chunk, bool)
}

// RetrieverSource hands out the current snapshot. A rebuild replaces the
// snapshot atomically; questions in flight keep the one they started with.
type RetrieverSource interface {
	Retriever() Retriever
}

// CorpusLoader reads the ingester-produced chunk corpus at build time.
type CorpusLoader interface {
	Load(ctx context.Context) ([]domain.Chunk, error)
}

// TableStore executes read-only analytical queries and discovers table
// schemas. Implementations must reject write and DDL statements.
type TableStore interface {
	TableSummaries(ctx context.Context, like string) ([]domain.TableSchema, error)
	Query(ctx context.Context, sql string) (domain.ResultSet, error)
}

// CorpusEvents publishes and consumes corpus-updated notifications that
// drive index rebuilds.
type CorpusEvents interface {
	PublishCorpusUpdated(ctx context.Context, reason string) error
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context, string) error) error
}
