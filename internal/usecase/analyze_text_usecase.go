// Package usecase contains the document-evaluation pipeline orchestration.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"criteria-analyzer/internal/domain"
)

// AnalyzeRequest is one document-evaluation run. JobID is optional: without
// it, progress publishing is skipped entirely.
type AnalyzeRequest struct {
	Text         string
	SourceURL    *string
	SourceDate   *time.Time
	ForceRecheck bool
	JobID        string
}

// AnalyzeTextUsecase runs one document through the evaluation pipeline:
// content identity, dedup gate, criteria fetch, availability check, the
// sequential per-criterion loop, and aggregation.
type AnalyzeTextUsecase interface {
	Analyze(ctx context.Context, req AnalyzeRequest) *domain.AnalysisOutcome
}

type analyzeTextUsecase struct {
	sources  domain.SourceRepository
	criteria domain.CriterionRepository
	events   domain.EventSink
	llm      domain.LLMClient
	progress domain.ProgressPublisher
	hasher   domain.SourceHashPolicy
	logger   *slog.Logger
}

func NewAnalyzeTextUsecase(
	sources domain.SourceRepository,
	criteria domain.CriterionRepository,
	events domain.EventSink,
	llm domain.LLMClient,
	progress domain.ProgressPublisher,
	hasher domain.SourceHashPolicy,
	logger *slog.Logger,
) AnalyzeTextUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &analyzeTextUsecase{
		sources:  sources,
		criteria: criteria,
		events:   events,
		llm:      llm,
		progress: progress,
		hasher:   hasher,
		logger:   logger,
	}
}

// Analyze never returns nil and never panics outward: unexpected failures are
// converted into an error outcome carrying the message, with the content hash
// attached once it is known. Only four conditions are terminal (skipped,
// no-criteria, unavailable, unhandled); everything else degrades per
// criterion so a document with N criteria still yields up to N events.
func (u *analyzeTextUsecase) Analyze(ctx context.Context, req AnalyzeRequest) (outcome *domain.AnalysisOutcome) {
	var sourceHash string
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("analysis panicked", "error", r, "source_hash", sourceHash)
			outcome = domain.FailedOutcome(fmt.Sprintf("%v", r), sourceHash)
		}
	}()

	// Empty text is valid input: it hashes like any other document, so a
	// repeat submission lands on the dedup gate. Input validation belongs
	// to the enqueue side.
	sourceHash = u.hasher.Compute(req.Text)
	log := u.logger.With("source_hash", sourceHash)
	log.Info("starting analysis", "text_length", len(req.Text))

	existing, err := u.sources.GetByHash(ctx, sourceHash)
	if err != nil {
		return domain.FailedOutcome(err.Error(), sourceHash)
	}
	if existing != nil && !req.ForceRecheck {
		log.Info("source already processed, skipping")
		return domain.SkippedOutcome(sourceHash)
	}

	source := domain.NewSource(sourceHash, req.Text, req.SourceURL, req.SourceDate, req.ForceRecheck)
	if _, err := u.sources.Upsert(ctx, source); err != nil {
		return domain.FailedOutcome(err.Error(), sourceHash)
	}

	criteria, err := u.criteria.ListActive(ctx)
	if err != nil {
		return domain.FailedOutcome(err.Error(), sourceHash)
	}
	if len(criteria) == 0 {
		log.Warn("no active criteria configured")
		return domain.FailedOutcome(domain.ReasonNoActiveCriteria, sourceHash)
	}
	log.Info("active criteria loaded", "count", len(criteria))

	// One availability probe per run, before spending any inference calls.
	if !u.llm.HealthCheck(ctx) {
		log.Error("inference service unavailable")
		return domain.FailedOutcome(domain.ReasonLLMUnavailable, sourceHash)
	}

	// Strictly sequential: observers expect completion counters to only
	// ever grow.
	total := len(criteria)
	persisted := make([]*domain.Event, 0, total)
	for i, criterion := range criteria {
		u.publishProgress(ctx, req.JobID, &domain.ProgressSnapshot{
			Status:            domain.ProgressStatusRunning,
			CurrentCriterion:  criterion.ID,
			CriterionText:     criterion.CriterionText,
			Progress:          fmt.Sprintf("%d/%d", i, total),
			CompletedCriteria: i,
			TotalCriteria:     total,
		})

		result := u.llm.Analyze(ctx, req.Text, criterion.CriterionText)

		finalMatch := domain.ApplyThreshold(result.IsMatch, result.Confidence, criterion.Threshold)
		if result.IsMatch && !finalMatch {
			log.Info("confidence below threshold",
				"criterion_id", criterion.ID,
				"confidence", result.Confidence,
				"threshold", *criterion.Threshold)
		}

		event := domain.NewEvent(source, criterion, finalMatch, result)
		if err := u.events.Insert(ctx, event); err != nil {
			// Persistence failure isolates to this criterion; the
			// dropped event stays out of the aggregate.
			log.Error("failed to persist event",
				"event_id", event.EventID,
				"criterion_id", criterion.ID,
				"error", err)
		} else {
			persisted = append(persisted, event)
		}

		u.publishProgress(ctx, req.JobID, &domain.ProgressSnapshot{
			Status:            domain.ProgressStatusCriterionDone,
			CurrentCriterion:  criterion.ID,
			CriterionText:     criterion.CriterionText,
			Progress:          fmt.Sprintf("%d/%d", i+1, total),
			CompletedCriteria: i + 1,
			TotalCriteria:     total,
			CurrentResult: &domain.ProgressResult{
				CriterionID: criterion.ID,
				IsMatch:     finalMatch,
				Confidence:  result.Confidence,
				Summary:     result.Summary,
				LatencyMS:   result.LatencyMS,
				ModelName:   result.ModelName,
			},
		})
	}

	outcome = domain.SucceededOutcome(sourceHash, persisted)
	u.publishProgress(ctx, req.JobID, &domain.ProgressSnapshot{
		Status:            domain.ProgressStatusCompleted,
		Progress:          fmt.Sprintf("%d/%d", total, total),
		CompletedCriteria: total,
		TotalCriteria:     total,
	})

	log.Info("analysis finished",
		"total_events", outcome.TotalEvents,
		"matches", outcome.Matches,
		"avg_confidence", outcome.AvgConfidence)
	return outcome
}

// publishProgress is best-effort: a failed write is logged and the run moves
// on. Without a job id there is nothing to key the snapshot by, so publishing
// is skipped.
func (u *analyzeTextUsecase) publishProgress(ctx context.Context, jobID string, snapshot *domain.ProgressSnapshot) {
	if jobID == "" {
		return
	}
	snapshot.Timestamp = time.Now().UTC()
	if err := u.progress.Publish(ctx, jobID, snapshot); err != nil {
		u.logger.Warn("failed to publish progress", "job_id", jobID, "error", err)
	}
}
