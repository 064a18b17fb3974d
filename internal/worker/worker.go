// Package worker consumes analysis jobs from the queue substrate and runs
// them through the evaluation pipeline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"criteria-analyzer/internal/adapter/queue"
	"criteria-analyzer/internal/domain"
	"criteria-analyzer/internal/usecase"
)

const (
	defaultBlockTimeout = 5 * time.Second
	defaultJobTimeout   = 5 * time.Minute
)

// JobSource abstracts the queue transport the worker consumes from.
type JobSource interface {
	Dequeue(ctx context.Context, block time.Duration) (*queue.Job, error)
	PublishResult(ctx context.Context, jobID string, outcome *domain.AnalysisOutcome) error
}

// Worker runs a single consume loop. Each job is processed end-to-end,
// synchronously, within this worker; concurrency comes from running more
// worker instances, which share no in-process state.
type Worker struct {
	source       JobSource
	analyze      usecase.AnalyzeTextUsecase
	logger       *slog.Logger
	blockTimeout time.Duration
	jobTimeout   time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// Config holds the worker loop timings.
type Config struct {
	BlockTimeout time.Duration
	JobTimeout   time.Duration
}

func New(source JobSource, analyze usecase.AnalyzeTextUsecase, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = defaultBlockTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &Worker{
		source:       source,
		analyze:      analyze,
		logger:       logger,
		blockTimeout: cfg.BlockTimeout,
		jobTimeout:   cfg.JobTimeout,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins consuming in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting worker", "queue", queue.QueueKey)
	go w.run(ctx)
}

// Stop requests shutdown and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	close(w.stopChan)
	<-w.doneChan
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneChan)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context cancelled, stopping")
			return
		case <-w.stopChan:
			return
		default:
		}

		job, err := w.source.Dequeue(ctx, w.blockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue job", "error", err)
			time.Sleep(w.blockTimeout)
			continue
		}
		if job == nil {
			continue
		}

		w.handleJob(ctx, job)
	}
}

func (w *Worker) handleJob(ctx context.Context, job *queue.Job) {
	log := w.logger.With("job_id", job.ID)
	log.Info("processing job", "text_length", len(job.Text))

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outcome := w.analyze.Analyze(jobCtx, usecase.AnalyzeRequest{
		Text:         job.Text,
		SourceURL:    optionalString(job.SourceURL),
		SourceDate:   parseSourceDate(job.SourceDate),
		ForceRecheck: job.ForceRecheck,
		JobID:        job.ID,
	})

	if err := w.source.PublishResult(ctx, job.ID, outcome); err != nil {
		log.Error("failed to publish job result", "error", err)
	}

	log.Info("job finished",
		"status", outcome.Status,
		"source_hash", outcome.SourceHash,
		"total_events", outcome.TotalEvents,
		"reason", outcome.Reason)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseSourceDate accepts an ISO date or a full RFC 3339 timestamp; anything
// else is treated as absent rather than failing the job.
func parseSourceDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
