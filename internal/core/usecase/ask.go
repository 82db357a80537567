package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// Options are the retrieval and gating knobs, supplied from configuration.
type Options struct {
	TopKDense       int
	TopKLexical     int
	FinalK          int
	FusionRRFK      int
	TickerBias      float64
	RerankerEnabled bool
	RerankTopN      int
	MinFaithfulness float64
}

// AskService runs one question through the full pipeline: hybrid
// retrieval, rank fusion, optional reranking, query planning and
// execution, grounded drafting, and faithfulness verification with the
// abstention gate. It holds no mutable state across questions; the
// retrieval snapshot is resolved once per call.
type AskService struct {
	embedder  ports.Embedder
	source    ports.RetrieverSource
	planner   *Planner
	generator *Generator
	verifier  *Verifier
	opts      Options
	log       *slog.Logger
}

func NewAskService(
	embedder ports.Embedder,
	source ports.RetrieverSource,
	planner *Planner,
	generator *Generator,
	verifier *Verifier,
	opts Options,
	log *slog.Logger,
) *AskService {
	if opts.TopKDense <= 0 {
		opts.TopKDense = 30
	}
	if opts.TopKLexical <= 0 {
		opts.TopKLexical = 30
	}
	if opts.FinalK <= 0 {
		opts.FinalK = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &AskService{
		embedder:  embedder,
		source:    source,
		planner:   planner,
		generator: generator,
		verifier:  verifier,
		opts:      opts,
		log:       log,
	}
}

func (s *AskService) Ask(ctx context.Context, question domain.Question) (*domain.Answer, error) {
	text := strings.TrimSpace(question.Text)
	if text == "" {
		return nil, fmt.Errorf("question text is required: %w", domain.ErrInvalidInput)
	}
	finalK := question.TopK
	if finalK <= 0 || finalK > s.opts.FinalK {
		finalK = s.opts.FinalK
	}

	retriever := s.source.Retriever()
	dense, lexical := s.retrieve(ctx, retriever, text, question.TickerHint)

	candidates := fuseRRF(retriever, dense, lexical, s.opts.FusionRRFK, question.TickerHint, s.opts.TickerBias)
	if s.opts.RerankerEnabled {
		candidates = rerankCandidates(text, question.TickerHint, candidates, s.opts.RerankTopN)
	}
	candidates = trimCandidates(candidates, finalK)

	planningFailed := false
	plans, queryCitations, err := s.planner.PlanAndExecute(ctx, text, question.TickerHint)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrPlanningFailure):
		planningFailed = true
		s.log.Warn("planning_failed", "question", text, "error", err)
	default:
		return nil, err
	}

	draft, err := s.generator.Generate(ctx, text, candidates, queryCitations, planningFailed)
	if err != nil {
		return nil, err
	}

	score, detail, err := s.verifier.Verify(ctx, text, draft.Text, draft.TextCits, queryCitations)
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrParseFailure):
		score = 0
		detail = "judge response unparsable; treated as unsupported"
		s.log.Warn("judge_unparsable", "question", text, "error", err)
	default:
		return nil, err
	}

	abstained := score < s.opts.MinFaithfulness ||
		strings.Contains(strings.ToLower(draft.Text), "not enough evidence")

	answer := &domain.Answer{
		ID:            uuid.NewString(),
		Text:          draft.Text,
		Claims:        draft.Claims,
		Citations:     append(append([]domain.Citation{}, draft.TextCits...), queryCitations...),
		Faithfulness:  score,
		Abstained:     abstained,
		VerdictDetail: detail,
		Evidence:      len(candidates),
	}
	if len(plans) > 0 {
		answer.PlanSource = plans[0].Source
	}
	if abstained {
		answer.Text = domain.AbstentionMessage
	}

	s.log.Info("question_answered",
		"question", text,
		"ticker", question.TickerHint,
		"evidence", len(candidates),
		"plans", len(plans),
		"faithfulness", score,
		"abstained", abstained,
	)
	return answer, nil
}

// retrieve runs the dense and lexical searches concurrently and joins
// before fusion. Either side failing or being unbuilt degrades to the
// surviving index instead of failing the question.
func (s *AskService) retrieve(ctx context.Context, retriever ports.Retriever, text, tickerHint string) ([]domain.Hit, []domain.Hit) {
	var dense, lexical []domain.Hit

	denseDone := make(chan struct{})
	go func() {
		defer close(denseDone)
		vector, err := s.embedder.EmbedQuery(ctx, domain.EncodeQuery(text, tickerHint))
		if err != nil {
			s.log.Warn("dense_retrieval_degraded", "stage", "embed", "error", err)
			return
		}
		hits, err := retriever.SearchDense(ctx, vector, s.opts.TopKDense)
		if err != nil {
			s.log.Warn("dense_retrieval_degraded", "stage", "search", "error", err)
			return
		}
		dense = hits
	}()

	lexicalQuery := text
	if hint := strings.TrimSpace(tickerHint); hint != "" {
		lexicalQuery = text + " " + hint
	}
	hits, err := retriever.SearchLexical(ctx, lexicalQuery, s.opts.TopKLexical)
	if err != nil {
		s.log.Warn("lexical_retrieval_degraded", "error", err)
	} else {
		lexical = hits
	}

	<-denseDone
	return dense, lexical
}
