package ports

import (
	"context"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the grounded Q&A pipeline.
// It returns either a verified answer or an abstention, never an
// unverified draft.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question domain.Question) (*domain.Answer, error)
}

// IndexAdmin triggers a rebuild of the retrieval snapshot.
type IndexAdmin interface {
	RequestReindex(ctx context.Context, reason string) error
}
