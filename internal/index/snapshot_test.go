package index

import (
	"context"
	"errors"
	"testing"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

type stubLoader struct {
	chunks []domain.Chunk
	err    error
}

func (s *stubLoader) Load(_ context.Context) ([]domain.Chunk, error) {
	return s.chunks, s.err
}

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c1", Ticker: "AAPL", Form: "10-K", Text: "iPhone net sales increased."},
		{ID: "c2", Ticker: "MSFT", Form: "10-K", Text: "Cloud revenue grew."},
	}
}

func TestHolderUnbuiltReportsUnavailable(t *testing.T) {
	holder := NewHolder(&stubLoader{}, &stubEmbedder{}, nil)
	retriever := holder.Retriever()

	if _, err := retriever.SearchDense(context.Background(), []float32{1}, 5); !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("dense on unbuilt index: %v", err)
	}
	if _, err := retriever.SearchLexical(context.Background(), "q", 5); !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("lexical on unbuilt index: %v", err)
	}
	if _, ok := retriever.ChunkByID("c1"); ok {
		t.Fatalf("unbuilt index resolved a chunk")
	}
	if holder.Size() != 0 {
		t.Fatalf("size = %d", holder.Size())
	}
}

func TestHolderRebuildServesBothIndexes(t *testing.T) {
	holder := NewHolder(&stubLoader{chunks: testChunks()}, &stubEmbedder{}, nil)
	if err := holder.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if holder.Size() != 2 {
		t.Fatalf("size = %d", holder.Size())
	}

	retriever := holder.Retriever()
	if _, err := retriever.SearchDense(context.Background(), []float32{1, 0}, 5); err != nil {
		t.Fatalf("dense search: %v", err)
	}
	hits, err := retriever.SearchLexical(context.Background(), "iPhone", 5)
	if err != nil {
		t.Fatalf("lexical search: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c1" {
		t.Fatalf("lexical hits = %v", hits)
	}
	if chunk, ok := retriever.ChunkByID("c2"); !ok || chunk.Ticker != "MSFT" {
		t.Fatalf("chunk lookup failed: %+v ok=%v", chunk, ok)
	}
}

func TestHolderEmbedFailureDegradesToLexical(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("provider down")}
	holder := NewHolder(&stubLoader{chunks: testChunks()}, embedder, nil)
	if err := holder.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	retriever := holder.Retriever()
	if _, err := retriever.SearchDense(context.Background(), []float32{1}, 5); !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("dense should be unavailable: %v", err)
	}
	if _, err := retriever.SearchLexical(context.Background(), "revenue", 5); err != nil {
		t.Fatalf("lexical should survive: %v", err)
	}
}

func TestHolderRebuildSwapsSnapshot(t *testing.T) {
	loader := &stubLoader{chunks: testChunks()}
	holder := NewHolder(loader, &stubEmbedder{}, nil)
	if err := holder.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	old := holder.Retriever()

	loader.chunks = append(testChunks(), domain.Chunk{ID: "c3", Ticker: "AAPL", Form: "10-Q", Text: "Quarterly update."})
	if err := holder.Rebuild(context.Background()); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	// The snapshot resolved before the rebuild is immutable.
	if _, ok := old.ChunkByID("c3"); ok {
		t.Fatalf("old snapshot saw the new chunk")
	}
	if _, ok := holder.Retriever().ChunkByID("c3"); !ok {
		t.Fatalf("new snapshot missing the new chunk")
	}
	if holder.Size() != 3 {
		t.Fatalf("size = %d", holder.Size())
	}
}

func TestHolderRebuildFailsOnEmptyCorpus(t *testing.T) {
	holder := NewHolder(&stubLoader{}, &stubEmbedder{}, nil)
	if err := holder.Rebuild(context.Background()); !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestHolderRebuildKeepsOldSnapshotOnLoaderError(t *testing.T) {
	loader := &stubLoader{chunks: testChunks()}
	holder := NewHolder(loader, &stubEmbedder{}, nil)
	if err := holder.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	loader.err = errors.New("corpus unreadable")
	if err := holder.Rebuild(context.Background()); err == nil {
		t.Fatalf("expected rebuild failure")
	}
	if holder.Size() != 2 {
		t.Fatalf("old snapshot should survive, size = %d", holder.Size())
	}
}
