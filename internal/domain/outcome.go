package domain

// Machine-stable reason strings carried in terminal outcomes.
const (
	ReasonAlreadyProcessed = "already_processed"
	ReasonNoActiveCriteria = "no_active_criteria"
	ReasonLLMUnavailable   = "llm_unavailable"
)

// OutcomeStatus tags an AnalysisOutcome variant.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeError   OutcomeStatus = "error"
)

// EventSummary is the per-event slice of a successful outcome, in the shape
// handed back to the queue substrate.
type EventSummary struct {
	EventID     string  `json:"event_id"`
	CriterionID string  `json:"criterion_id"`
	IsMatch     bool    `json:"is_match"`
	Confidence  float64 `json:"confidence"`
	Summary     string  `json:"summary"`
	LatencyMS   int64   `json:"latency_ms"`
}

// AnalysisOutcome is the terminal result of one pipeline run. Exactly one of
// the three variants applies, tagged by Status. No stack traces leak here:
// Reason is a stable string suitable for display or alerting.
type AnalysisOutcome struct {
	Status        OutcomeStatus  `json:"status"`
	SourceHash    string         `json:"source_hash,omitempty"`
	TotalEvents   int            `json:"total_events"`
	Matches       int            `json:"matches"`
	AvgConfidence float64        `json:"avg_confidence"`
	Events        []EventSummary `json:"events,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// SkippedOutcome marks a document that was already processed.
func SkippedOutcome(sourceHash string) *AnalysisOutcome {
	return &AnalysisOutcome{
		Status:     OutcomeSkipped,
		SourceHash: sourceHash,
		Reason:     ReasonAlreadyProcessed,
	}
}

// FailedOutcome marks a terminal error. The source hash is attached when it
// was already computed.
func FailedOutcome(reason, sourceHash string) *AnalysisOutcome {
	return &AnalysisOutcome{
		Status:     OutcomeError,
		SourceHash: sourceHash,
		Reason:     reason,
	}
}

// SucceededOutcome aggregates the persisted events of a completed run.
// Events dropped by persistence failures are excluded from every count.
func SucceededOutcome(sourceHash string, events []*Event) *AnalysisOutcome {
	summaries := make([]EventSummary, 0, len(events))
	matches := 0
	confidenceSum := 0.0
	for _, e := range events {
		if e.IsMatch {
			matches++
		}
		confidenceSum += e.Confidence
		summaries = append(summaries, EventSummary{
			EventID:     e.EventID.String(),
			CriterionID: e.CriterionID,
			IsMatch:     e.IsMatch,
			Confidence:  e.Confidence,
			Summary:     e.Summary,
			LatencyMS:   e.LatencyMS,
		})
	}
	avg := 0.0
	if len(events) > 0 {
		avg = confidenceSum / float64(len(events))
	}
	return &AnalysisOutcome{
		Status:        OutcomeSuccess,
		SourceHash:    sourceHash,
		TotalEvents:   len(events),
		Matches:       matches,
		AvgConfidence: avg,
		Events:        summaries,
	}
}
