package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// fakeRetriever serves canned hits and chunks for fusion and pipeline
// tests.
type fakeRetriever struct {
	chunks  map[string]domain.Chunk
	dense   []domain.Hit
	lexical []domain.Hit

	denseErr   error
	lexicalErr error
}

func newFakeRetriever(chunks ...domain.Chunk) *fakeRetriever {
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	return &fakeRetriever{chunks: byID}
}

func (f *fakeRetriever) SearchDense(_ context.Context, _ []float32, k int) ([]domain.Hit, error) {
	if f.denseErr != nil {
		return nil, f.denseErr
	}
	return capHits(f.dense, k), nil
}

func (f *fakeRetriever) SearchLexical(_ context.Context, _ string, k int) ([]domain.Hit, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	return capHits(f.lexical, k), nil
}

func (f *fakeRetriever) ChunkByID(id string) (domain.Chunk, bool) {
	c, ok := f.chunks[id]
	return c, ok
}

func (f *fakeRetriever) Retriever() ports.Retriever { return f }

func capHits(hits []domain.Hit, k int) []domain.Hit {
	if k > 0 && len(hits) > k {
		return hits[:k]
	}
	return hits
}

// fakeChat scripts model responses keyed by a substring of the system
// prompt, so one fake serves planner, generator, and judge.
type fakeChat struct {
	responses map[string]string
	err       error
	lastUser  string
}

func (f *fakeChat) respond(system string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for key, resp := range f.responses {
		if strings.Contains(system, key) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted response for system prompt")
}

func (f *fakeChat) Complete(_ context.Context, _, system, user string) (string, error) {
	f.lastUser = user
	return f.respond(system)
}

func (f *fakeChat) CompleteJSON(_ context.Context, _, system, user string) (string, error) {
	f.lastUser = user
	return f.respond(system)
}

type fakeEmbedder struct {
	queryVec []float32
	err      error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.queryVec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.queryVec, nil
}

type fakeTableStore struct {
	schemas    []domain.TableSchema
	schemasErr error

	results  map[string]domain.ResultSet
	queryErr error
	queries  []string
}

func (f *fakeTableStore) TableSummaries(_ context.Context, like string) ([]domain.TableSchema, error) {
	if f.schemasErr != nil {
		return nil, f.schemasErr
	}
	if strings.TrimSpace(like) == "" {
		return f.schemas, nil
	}
	var out []domain.TableSchema
	for _, s := range f.schemas {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(like)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeTableStore) Query(_ context.Context, sql string) (domain.ResultSet, error) {
	f.queries = append(f.queries, sql)
	if f.queryErr != nil {
		return domain.ResultSet{}, f.queryErr
	}
	for key, rs := range f.results {
		if strings.Contains(sql, key) {
			return rs, nil
		}
	}
	return domain.ResultSet{Columns: []string{"n"}, Rows: [][]string{{"1"}}}, nil
}

func segmentsSchema(name string) domain.TableSchema {
	return domain.TableSchema{
		Name: name,
		Columns: []domain.Column{
			{Name: "year", Type: "integer"},
			{Name: "segment", Type: "text"},
			{Name: "revenue_usd_m", Type: "numeric"},
		},
	}
}
