package usecase_test

import (
	"context"
	"testing"

	"criteria-analyzer/internal/domain"
	"criteria-analyzer/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) GetByHash(ctx context.Context, sourceHash string) (*domain.Source, error) {
	args := m.Called(ctx, sourceHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) Upsert(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) ListRecent(ctx context.Context, limit int) ([]domain.Source, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Source), args.Error(1)
}

type MockCriterionRepository struct {
	mock.Mock
}

func (m *MockCriterionRepository) ListActive(ctx context.Context) ([]domain.Criterion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Criterion), args.Error(1)
}

func (m *MockCriterionRepository) List(ctx context.Context) ([]domain.Criterion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Criterion), args.Error(1)
}

func (m *MockCriterionRepository) Get(ctx context.Context, id string) (*domain.Criterion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Criterion), args.Error(1)
}

func (m *MockCriterionRepository) Create(ctx context.Context, criterion *domain.Criterion) error {
	args := m.Called(ctx, criterion)
	return args.Error(0)
}

func (m *MockCriterionRepository) Update(ctx context.Context, criterion *domain.Criterion) error {
	args := m.Called(ctx, criterion)
	return args.Error(0)
}

func (m *MockCriterionRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Insert(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// stubLLM scripts per-criterion verdicts without a live inference service.
type stubLLM struct {
	available    bool
	results      map[string]*domain.AnalysisResult
	analyzeCalls int
}

func (s *stubLLM) Analyze(_ context.Context, _, criterionText string) *domain.AnalysisResult {
	s.analyzeCalls++
	if r, ok := s.results[criterionText]; ok {
		return r
	}
	return &domain.AnalysisResult{ModelName: "llama3:8b"}
}

func (s *stubLLM) HealthCheck(context.Context) bool { return s.available }

func (s *stubLLM) ModelName() string { return "llama3:8b" }

// recordingPublisher captures every snapshot in publish order.
type recordingPublisher struct {
	jobIDs    []string
	snapshots []domain.ProgressSnapshot
}

func (p *recordingPublisher) Publish(_ context.Context, jobID string, snapshot *domain.ProgressSnapshot) error {
	p.jobIDs = append(p.jobIDs, jobID)
	p.snapshots = append(p.snapshots, *snapshot)
	return nil
}

type fixture struct {
	sources  *MockSourceRepository
	criteria *MockCriterionRepository
	events   *MockEventSink
	llm      *stubLLM
	progress *recordingPublisher
	hasher   domain.SourceHashPolicy
	uc       usecase.AnalyzeTextUsecase
}

func newFixture() *fixture {
	f := &fixture{
		sources:  new(MockSourceRepository),
		criteria: new(MockCriterionRepository),
		events:   new(MockEventSink),
		llm:      &stubLLM{available: true, results: map[string]*domain.AnalysisResult{}},
		progress: &recordingPublisher{},
		hasher:   domain.NewSourceHashPolicy(),
	}
	f.uc = usecase.NewAnalyzeTextUsecase(f.sources, f.criteria, f.events, f.llm, f.progress, f.hasher, nil)
	return f
}

func (f *fixture) expectUpsertPassthrough() {
	// The pipeline denormalizes from the freshly built Source, so the
	// returned row's contents do not matter here.
	f.sources.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Source")).
		Return(&domain.Source{}, nil)
}

func floatPtr(v float64) *float64 { return &v }

// --- Tests ---

func TestAnalyze_SkipsAlreadyProcessed(t *testing.T) {
	f := newFixture()
	text := "an already seen document"
	hash := f.hasher.Compute(text)

	f.sources.On("GetByHash", mock.Anything, hash).Return(&domain.Source{SourceHash: hash}, nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, domain.OutcomeSkipped, out.Status)
	assert.Equal(t, domain.ReasonAlreadyProcessed, out.Reason)
	assert.Equal(t, hash, out.SourceHash)
	assert.Zero(t, f.llm.analyzeCalls)
	f.sources.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAnalyze_ForceRecheckReprocesses(t *testing.T) {
	f := newFixture()
	text := "an already seen document"
	hash := f.hasher.Compute(text)

	f.sources.On("GetByHash", mock.Anything, hash).Return(&domain.Source{SourceHash: hash}, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
		{ID: "c1", CriterionText: "rule one"},
	}, nil)
	f.llm.results["rule one"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.8, ModelName: "llama3:8b"}
	f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text, ForceRecheck: true})

	assert.Equal(t, domain.OutcomeSuccess, out.Status)
	assert.Equal(t, 1, out.TotalEvents)
	f.sources.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAnalyze_NoActiveCriteria(t *testing.T) {
	f := newFixture()
	text := "a fresh document"
	hash := f.hasher.Compute(text)

	f.sources.On("GetByHash", mock.Anything, hash).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{}, nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, domain.OutcomeError, out.Status)
	assert.Equal(t, domain.ReasonNoActiveCriteria, out.Reason)
	assert.Equal(t, hash, out.SourceHash)
	assert.Zero(t, f.llm.analyzeCalls)
	f.events.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAnalyze_LLMUnavailable(t *testing.T) {
	f := newFixture()
	f.llm.available = false
	text := "a fresh document"

	f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
		{ID: "c1", CriterionText: "rule one"},
	}, nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, domain.OutcomeError, out.Status)
	assert.Equal(t, domain.ReasonLLMUnavailable, out.Reason)
	assert.Zero(t, f.llm.analyzeCalls, "no per-criterion call may happen after a failed probe")
	f.events.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestAnalyze_ThresholdDominatesRawVerdict(t *testing.T) {
	f := newFixture()
	text := "document under thresholds"

	f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
		{ID: "c1", CriterionText: "no threshold"},
		{ID: "c2", CriterionText: "strict threshold", Threshold: floatPtr(0.7)},
		{ID: "c3", CriterionText: "met threshold", Threshold: floatPtr(0.5)},
	}, nil)
	f.llm.results["no threshold"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.4, ModelName: "llama3:8b"}
	f.llm.results["strict threshold"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.6, ModelName: "llama3:8b"}
	f.llm.results["met threshold"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.6, ModelName: "llama3:8b"}

	var inserted []*domain.Event
	f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).
		Return(nil).
		Run(func(args mock.Arguments) {
			inserted = append(inserted, args.Get(1).(*domain.Event))
		})

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	require.Equal(t, domain.OutcomeSuccess, out.Status)
	require.Len(t, inserted, 3)
	assert.True(t, inserted[0].IsMatch, "no threshold keeps the raw verdict")
	assert.False(t, inserted[1].IsMatch, "confidence below threshold must not match")
	assert.True(t, inserted[2].IsMatch, "confidence above threshold survives")
	assert.Equal(t, 2, out.Matches)
}

func TestAnalyze_PersistenceFailureIsolation(t *testing.T) {
	f := newFixture()
	text := "document with a flaky sink"

	f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
		{ID: "c1", CriterionText: "rule one"},
		{ID: "c2", CriterionText: "rule two"},
		{ID: "c3", CriterionText: "rule three"},
	}, nil)
	for _, rule := range []string{"rule one", "rule two", "rule three"} {
		f.llm.results[rule] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.9, ModelName: "llama3:8b"}
	}

	f.events.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.CriterionID == "c2"
	})).Return(assert.AnError)
	f.events.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
		return e.CriterionID != "c2"
	})).Return(nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, domain.OutcomeSuccess, out.Status, "one sink failure must not fail the run")
	assert.Equal(t, 2, out.TotalEvents)
	assert.Equal(t, 2, out.Matches)
	require.Len(t, out.Events, 2)
	for _, e := range out.Events {
		assert.NotEqual(t, "c2", e.CriterionID)
	}
	assert.Equal(t, 3, f.llm.analyzeCalls, "remaining criteria still run")
}

func TestAnalyze_AggregateMath(t *testing.T) {
	f := newFixture()
	text := "document for aggregation"

	f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
		{ID: "c1", CriterionText: "rule one"},
		{ID: "c2", CriterionText: "rule two"},
	}, nil)
	f.llm.results["rule one"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.9, ModelName: "llama3:8b"}
	f.llm.results["rule two"] = &domain.AnalysisResult{IsMatch: false, Confidence: 0.1, ModelName: "llama3:8b"}
	f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, 2, out.TotalEvents)
	assert.Equal(t, 1, out.Matches)
	assert.InDelta(t, 0.5, out.AvgConfidence, 1e-9)
}

func TestAnalyze_ProgressPublishing(t *testing.T) {
	t.Run("Snapshots published around each criterion and on completion", func(t *testing.T) {
		f := newFixture()
		text := "document with observers"

		f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
		f.expectUpsertPassthrough()
		f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
			{ID: "c1", CriterionText: "rule one"},
			{ID: "c2", CriterionText: "rule two"},
		}, nil)
		f.llm.results["rule one"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.8, ModelName: "llama3:8b"}
		f.llm.results["rule two"] = &domain.AnalysisResult{IsMatch: false, Confidence: 0.2, ModelName: "llama3:8b"}
		f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)

		out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text, JobID: "job-42"})
		require.Equal(t, domain.OutcomeSuccess, out.Status)

		// before + after per criterion, plus one terminal snapshot
		require.Len(t, f.progress.snapshots, 5)
		for _, id := range f.progress.jobIDs {
			assert.Equal(t, "job-42", id)
		}

		assert.Equal(t, domain.ProgressStatusRunning, f.progress.snapshots[0].Status)
		assert.Equal(t, "0/2", f.progress.snapshots[0].Progress)
		assert.Equal(t, domain.ProgressStatusCriterionDone, f.progress.snapshots[1].Status)
		assert.Equal(t, "1/2", f.progress.snapshots[1].Progress)
		require.NotNil(t, f.progress.snapshots[1].CurrentResult)
		assert.Equal(t, "c1", f.progress.snapshots[1].CurrentResult.CriterionID)
		assert.Equal(t, domain.ProgressStatusCompleted, f.progress.snapshots[4].Status)
		assert.Equal(t, "2/2", f.progress.snapshots[4].Progress)

		// completion counters only ever grow
		prev := -1
		for _, s := range f.progress.snapshots {
			assert.GreaterOrEqual(t, s.CompletedCriteria, prev)
			prev = s.CompletedCriteria
		}
	})

	t.Run("No job id means no publishing at all", func(t *testing.T) {
		f := newFixture()
		f.sources.On("GetByHash", mock.Anything, mock.Anything).Return(nil, nil)
		f.expectUpsertPassthrough()
		f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
			{ID: "c1", CriterionText: "rule one"},
		}, nil)
		f.llm.results["rule one"] = &domain.AnalysisResult{IsMatch: true, Confidence: 0.8, ModelName: "llama3:8b"}
		f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)

		out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: "synchronous run"})
		require.Equal(t, domain.OutcomeSuccess, out.Status)
		assert.Empty(t, f.progress.snapshots)
	})
}

func TestAnalyze_EmptyTextGoesThroughDedupGate(t *testing.T) {
	t.Run("repeat submission skips like any other document", func(t *testing.T) {
		f := newFixture()
		hash := f.hasher.Compute("")

		f.sources.On("GetByHash", mock.Anything, hash).Return(&domain.Source{SourceHash: hash}, nil)

		out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: ""})

		assert.Equal(t, domain.OutcomeSkipped, out.Status)
		assert.Equal(t, domain.ReasonAlreadyProcessed, out.Reason)
		assert.Equal(t, hash, out.SourceHash)
		f.sources.AssertCalled(t, "GetByHash", mock.Anything, hash)
	})

	t.Run("first submission runs the full pipeline", func(t *testing.T) {
		f := newFixture()
		hash := f.hasher.Compute("   \n ")

		f.sources.On("GetByHash", mock.Anything, hash).Return(nil, nil)
		f.expectUpsertPassthrough()
		f.criteria.On("ListActive", mock.Anything).Return([]domain.Criterion{
			{ID: "c1", CriterionText: "rule one"},
		}, nil)
		f.events.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil)

		out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: "   \n "})

		assert.Equal(t, domain.OutcomeSuccess, out.Status)
		assert.Equal(t, hash, out.SourceHash, "whitespace-only text hashes the empty string")
		assert.Equal(t, 1, f.llm.analyzeCalls)
	})
}

func TestAnalyze_PanicBecomesErrorOutcome(t *testing.T) {
	f := newFixture()
	text := "document that trips a bug"
	hash := f.hasher.Compute(text)

	f.sources.On("GetByHash", mock.Anything, hash).Return(nil, nil)
	f.expectUpsertPassthrough()
	f.criteria.On("ListActive", mock.Anything).Run(func(mock.Arguments) {
		panic("criteria table corrupted")
	}).Return(nil, nil)

	out := f.uc.Analyze(context.Background(), usecase.AnalyzeRequest{Text: text})

	assert.Equal(t, domain.OutcomeError, out.Status)
	assert.Contains(t, out.Reason, "criteria table corrupted")
	assert.Equal(t, hash, out.SourceHash, "hash is preserved once computed")
}
