package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"criteria-analyzer/internal/adapter/clickhouse"
	"criteria-analyzer/internal/adapter/ollama"
	"criteria-analyzer/internal/adapter/progress"
	"criteria-analyzer/internal/adapter/queue"
	"criteria-analyzer/internal/adapter/repository"
	"criteria-analyzer/internal/domain"
	"criteria-analyzer/internal/infra/config"
	"criteria-analyzer/internal/usecase"
	"criteria-analyzer/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	SourceRepo    domain.SourceRepository
	CriterionRepo domain.CriterionRepository
	EventSink     domain.EventSink
	EventReader   domain.EventReader

	// Adapters
	LLM      domain.LLMClient
	Progress domain.ProgressPublisher
	Queue    *queue.Queue

	// Usecase
	AnalyzeUsecase usecase.AnalyzeTextUsecase

	// Worker
	Worker *worker.Worker
}

// NewApplicationComponents wires all dependencies from config and the
// already-established connections.
func NewApplicationComponents(
	cfg *config.Config,
	pool *pgxpool.Pool,
	events *clickhouse.EventSink,
	redisClient *redis.Client,
	log *slog.Logger,
) *ApplicationComponents {
	// Repositories
	sourceRepo := repository.NewSourceRepository(pool)
	criterionRepo := repository.NewCriterionRepository(pool)
	if cfg.Worker.CriteriaCacheTTL > 0 {
		criterionRepo = repository.NewCachedCriterionRepository(
			criterionRepo,
			time.Duration(cfg.Worker.CriteriaCacheTTL)*time.Second,
		)
	}

	// External clients
	llm := ollama.NewClient(
		cfg.Ollama.URL,
		cfg.Ollama.Model,
		ollama.Options{
			Temperature: cfg.Ollama.Temperature,
			TopP:        cfg.Ollama.TopP,
			TopK:        cfg.Ollama.TopK,
			MaxTokens:   cfg.Ollama.MaxTokens,
		},
		time.Duration(cfg.Ollama.Timeout)*time.Second,
		log,
	)
	progressPublisher := progress.NewRedisPublisher(
		redisClient,
		time.Duration(cfg.Worker.ProgressTTL)*time.Second,
	)
	jobQueue := queue.NewQueue(redisClient, time.Duration(cfg.Worker.ResultTTL)*time.Second)

	// Domain services
	hasher := domain.NewSourceHashPolicy()

	analyzeUsecase := usecase.NewAnalyzeTextUsecase(
		sourceRepo, criterionRepo, events, llm, progressPublisher, hasher, log,
	)

	jobWorker := worker.New(jobQueue, analyzeUsecase, worker.Config{
		BlockTimeout: time.Duration(cfg.Worker.BlockTimeout) * time.Second,
		JobTimeout:   time.Duration(cfg.Worker.JobTimeout) * time.Second,
	}, log)

	return &ApplicationComponents{
		SourceRepo:     sourceRepo,
		CriterionRepo:  criterionRepo,
		EventSink:      events,
		EventReader:    events,
		LLM:            llm,
		Progress:       progressPublisher,
		Queue:          jobQueue,
		AnalyzeUsecase: analyzeUsecase,
		Worker:         jobWorker,
	}
}
