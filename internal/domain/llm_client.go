package domain

import "context"

// AnalysisResult carries one raw model verdict for a (text, criterion) pair.
// Confidence is already clamped to [0,1] by the client; LatencyMS is the
// wall-clock duration of the inference call regardless of outcome.
type AnalysisResult struct {
	IsMatch    bool
	Confidence float64
	Summary    string
	ModelName  string
	LatencyMS  int64
}

// LLMClient defines the capability to evaluate a text against one criterion.
//
// Analyze never fails hard: transport and parse failures degrade to a
// fallback verdict (no match, zero confidence, marker summary) so a single
// bad inference call cannot abort the criteria loop.
type LLMClient interface {
	Analyze(ctx context.Context, text, criterionText string) *AnalysisResult
	// HealthCheck reports whether the inference service is ready. The
	// pipeline checks it once per run before spending any per-criterion
	// calls.
	HealthCheck(ctx context.Context) bool
	ModelName() string
}
