package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is one immutable evaluation outcome for a (source, criterion) pair.
// Events are append-only: never mutated or deleted by the pipeline.
type Event struct {
	EventID       uuid.UUID
	SourceHash    string
	SourceURL     *string
	SourceDate    *time.Time
	IngestTS      time.Time
	CriterionID   string
	CriterionText string
	IsMatch       bool
	Confidence    float64
	Summary       string
	ModelName     string
	LatencyMS     int64
	CreatedAt     time.Time
}

// NewEvent constructs an Event from the source under evaluation, the
// criterion, and the post-threshold verdict.
func NewEvent(source *Source, criterion Criterion, isMatch bool, result *AnalysisResult) *Event {
	return &Event{
		EventID:       uuid.New(),
		SourceHash:    source.SourceHash,
		SourceURL:     source.SourceURL,
		SourceDate:    source.SourceDate,
		IngestTS:      source.IngestTS,
		CriterionID:   criterion.ID,
		CriterionText: criterion.CriterionText,
		IsMatch:       isMatch,
		Confidence:    result.Confidence,
		Summary:       result.Summary,
		ModelName:     result.ModelName,
		LatencyMS:     result.LatencyMS,
		CreatedAt:     time.Now().UTC(),
	}
}

// CriterionStats is the per-criterion aggregate over a time window, computed
// from the analytical store.
type CriterionStats struct {
	CriterionID   string
	TotalEvents   uint64
	Matches       uint64
	AvgConfidence float64
	AvgLatencyMS  float64
}

// DailyStats is the per-day event aggregate.
type DailyStats struct {
	Date          time.Time
	TotalEvents   uint64
	Matches       uint64
	AvgConfidence float64
}
