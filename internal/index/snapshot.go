package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

const embedBatchSize = 64

// Snapshot is one immutable build of both indexes plus the chunk lookup.
// A question resolves a snapshot once and keeps it for its whole
// lifetime, so an atomic swap mid-flight is invisible to it.
type Snapshot struct {
	byID    map[string]domain.Chunk
	dense   *denseIndex
	lexical *bm25Index
}

func (s *Snapshot) SearchDense(_ context.Context, queryVector []float32, k int) ([]domain.Hit, error) {
	if s == nil || s.dense == nil {
		return nil, fmt.Errorf("dense index not built: %w", domain.ErrRetrievalUnavailable)
	}
	return s.dense.search(queryVector, k), nil
}

func (s *Snapshot) SearchLexical(_ context.Context, queryText string, k int) ([]domain.Hit, error) {
	if s == nil || s.lexical == nil {
		return nil, fmt.Errorf("lexical index not built: %w", domain.ErrRetrievalUnavailable)
	}
	return s.lexical.search(queryText, k), nil
}

func (s *Snapshot) ChunkByID(id string) (domain.Chunk, bool) {
	if s == nil {
		return domain.Chunk{}, false
	}
	chunk, ok := s.byID[id]
	return chunk, ok
}

// Holder owns the current snapshot and rebuilds it from the corpus on
// demand. Rebuilds serialize behind a mutex and coalesce; the swap itself
// is a single atomic store, so readers never see a half-built index.
type Holder struct {
	loader   ports.CorpusLoader
	embedder ports.Embedder
	log      *slog.Logger

	rebuildMu sync.Mutex
	current   atomic.Pointer[Snapshot]
}

func NewHolder(loader ports.CorpusLoader, embedder ports.Embedder, log *slog.Logger) *Holder {
	if log == nil {
		log = slog.Default()
	}
	return &Holder{loader: loader, embedder: embedder, log: log}
}

// Retriever returns the current snapshot. Before the first successful
// rebuild both searches report domain.ErrRetrievalUnavailable.
func (h *Holder) Retriever() ports.Retriever {
	if snap := h.current.Load(); snap != nil {
		return snap
	}
	return (*Snapshot)(nil)
}

// Size reports how many chunks the current snapshot holds, zero before
// the first successful rebuild.
func (h *Holder) Size() int {
	if snap := h.current.Load(); snap != nil {
		return len(snap.byID)
	}
	return 0
}

// Rebuild loads the corpus, builds both indexes, and swaps the snapshot
// in. When embedding fails the snapshot is still swapped with a lexical
// index only: dense retrieval degrades instead of pinning the old corpus.
func (h *Holder) Rebuild(ctx context.Context) error {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	chunks, err := h.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("corpus is empty: %w", domain.ErrRetrievalUnavailable)
	}

	ids := make([]string, len(chunks))
	passages := make([]string, len(chunks))
	lexDocs := make([]string, len(chunks))
	byID := make(map[string]domain.Chunk, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		passages[i] = domain.EncodePassage(c)
		lexDocs[i] = domain.LexicalDocument(c)
		byID[c.ID] = c
	}

	snap := &Snapshot{
		byID:    byID,
		lexical: newBM25Index(ids, lexDocs),
	}

	vectors, err := h.embedAll(ctx, passages)
	if err != nil {
		h.log.Warn("dense_index_skipped", "error", err)
	} else {
		snap.dense = newDenseIndex(ids, vectors)
	}

	h.current.Store(snap)
	h.log.Info("index_rebuilt", "chunks", len(chunks), "dense", snap.dense != nil)
	return nil
}

func (h *Holder) embedAll(ctx context.Context, passages []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch, err := h.embedder.Embed(ctx, passages[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding batch size mismatch: want %d, got %d", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
