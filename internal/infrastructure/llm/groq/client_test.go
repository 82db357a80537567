package groq

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestOrderEmbeddingsUsesProviderIndex(t *testing.T) {
	data := []openai.Embedding{
		{Index: 2, Embedding: []float32{0.3}},
		{Index: 0, Embedding: []float32{0.1}},
		{Index: 1, Embedding: []float32{0.2}},
	}

	vectors, err := orderEmbeddings(data, 3)
	if err != nil {
		t.Fatalf("orderEmbeddings() error = %v", err)
	}
	for i, want := range []float32{0.1, 0.2, 0.3} {
		if vectors[i][0] != want {
			t.Fatalf("vectors[%d] = %v, want %v", i, vectors[i], want)
		}
	}
}

func TestOrderEmbeddingsRejectsShortResponse(t *testing.T) {
	data := []openai.Embedding{{Index: 0, Embedding: []float32{0.1}}}

	if _, err := orderEmbeddings(data, 2); err == nil {
		t.Fatal("expected error for missing vector")
	}
}

func TestOrderEmbeddingsRejectsBadIndex(t *testing.T) {
	data := []openai.Embedding{
		{Index: 0, Embedding: []float32{0.1}},
		{Index: 5, Embedding: []float32{0.2}},
	}

	if _, err := orderEmbeddings(data, 2); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestOrderEmbeddingsRejectsDuplicateIndex(t *testing.T) {
	data := []openai.Embedding{
		{Index: 0, Embedding: []float32{0.1}},
		{Index: 0, Embedding: []float32{0.2}},
	}

	if _, err := orderEmbeddings(data, 2); err == nil {
		t.Fatal("expected error for duplicate index")
	}
}
