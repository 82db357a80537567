package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/edgarqa/edgarqa/internal/config"
	"github.com/edgarqa/edgarqa/internal/core/ports"
	"github.com/edgarqa/edgarqa/internal/core/usecase"
	"github.com/edgarqa/edgarqa/internal/index"
	"github.com/edgarqa/edgarqa/internal/infrastructure/corpus"
	"github.com/edgarqa/edgarqa/internal/infrastructure/llm/groq"
	"github.com/edgarqa/edgarqa/internal/infrastructure/queue/nats"
	"github.com/edgarqa/edgarqa/internal/infrastructure/resilience"
	"github.com/edgarqa/edgarqa/internal/infrastructure/store/postgres"
	"github.com/edgarqa/edgarqa/internal/observability/metrics"
)

// App wires configuration into the running object graph shared by the API
// process: one LLM client, one Postgres store, one NATS connection, one
// index holder.
type App struct {
	Config config.Config
	Log    *slog.Logger

	Holder     *index.Holder
	Queue      *nats.Queue
	AskSvc     ports.QuestionAnswerer
	ReindexSvc ports.IndexAdmin
	Metrics    *metrics.HTTPServerMetrics
	IndexMet   *metrics.IndexMetrics

	closeFn func()
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	resCfg := resilience.DefaultConfig()
	resCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	resCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resCfg, log)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db, cfg.PreviewMaxRows, cfg.CatalogMaxTables)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := groq.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.EmbedModel, executor)

	loader := corpus.NewJSONLLoader(cfg.CorpusPath)
	holder := index.NewHolder(loader, llm, log)

	planner := usecase.NewPlanner(
		store,
		llm,
		cfg.ChatModel,
		cfg.PlannerUseModel,
		cfg.PlannerMaxPlans,
		cfg.CatalogMaxTables,
		cfg.PreviewMaxRows,
		log,
	)
	generator := usecase.NewGenerator(llm, cfg.ChatModel, cfg.SnippetMaxChars)
	verifier := usecase.NewVerifier(llm, cfg.JudgeModel)

	askSvc := usecase.NewAskService(llm, holder, planner, generator, verifier, usecase.Options{
		TopKDense:       cfg.TopKDense,
		TopKLexical:     cfg.TopKLexical,
		FinalK:          cfg.FinalK,
		FusionRRFK:      cfg.FusionRRFK,
		TickerBias:      cfg.TickerBias,
		RerankerEnabled: cfg.RerankerEnabled,
		RerankTopN:      cfg.RerankTopN,
		MinFaithfulness: cfg.MinFaithfulness,
	}, log)
	reindexSvc := usecase.NewReindexService(queue)

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	indexMetrics := metrics.NewIndexMetrics(httpMetrics.Registry())

	return &App{
		Config:     cfg,
		Log:        log,
		Holder:     holder,
		Queue:      queue,
		AskSvc:     askSvc,
		ReindexSvc: reindexSvc,
		Metrics:    httpMetrics,
		IndexMet:   indexMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
