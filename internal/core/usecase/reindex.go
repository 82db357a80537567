package usecase

import (
	"context"
	"fmt"

	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// ReindexService publishes a corpus-updated event; the subscriber side
// performs the actual atomic snapshot rebuild.
type ReindexService struct {
	events ports.CorpusEvents
}

func NewReindexService(events ports.CorpusEvents) *ReindexService {
	return &ReindexService{events: events}
}

func (s *ReindexService) RequestReindex(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "manual"
	}
	if err := s.events.PublishCorpusUpdated(ctx, reason); err != nil {
		return fmt.Errorf("request reindex: %w", err)
	}
	return nil
}
