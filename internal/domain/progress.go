package domain

import "time"

// Progress status tags, in the order an observer sees them.
const (
	ProgressStatusRunning       = "running"
	ProgressStatusCriterionDone = "criterion_done"
	ProgressStatusCompleted     = "completed"
)

// ProgressResult is the last inference result carried in a snapshot.
type ProgressResult struct {
	CriterionID string  `json:"criterion_id"`
	IsMatch     bool    `json:"is_match"`
	Confidence  float64 `json:"confidence"`
	Summary     string  `json:"summary"`
	LatencyMS   int64   `json:"latency_ms"`
	ModelName   string  `json:"model_name"`
}

// ProgressSnapshot is the transient, externally observable state of one job.
// Snapshots are overwritten after every criterion, expire on their own, and
// are never authoritative.
type ProgressSnapshot struct {
	Status             string          `json:"status"`
	CurrentCriterion   string          `json:"current_criterion"`
	CriterionText      string          `json:"criterion_text"`
	Progress           string          `json:"progress"`
	CompletedCriteria  int             `json:"completed_criteria"`
	TotalCriteria      int             `json:"total_criteria"`
	CurrentResult      *ProgressResult `json:"current_result,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
}
