package domain

import "context"

// SourceRepository is the read/write contract against the relational store
// for deduplicated documents.
type SourceRepository interface {
	// GetByHash returns the source for a content hash, or nil when unseen.
	GetByHash(ctx context.Context, sourceHash string) (*Source, error)
	// Upsert creates the source on first sighting of its hash, or refreshes
	// preview, force-recheck flag, and updated_at on a conflict.
	Upsert(ctx context.Context, source *Source) (*Source, error)
	ListRecent(ctx context.Context, limit int) ([]Source, error)
}

// CriterionRepository supplies the evaluation criteria. The pipeline only
// calls ListActive; the remaining operations back operator tooling.
type CriterionRepository interface {
	ListActive(ctx context.Context) ([]Criterion, error)
	List(ctx context.Context) ([]Criterion, error)
	Get(ctx context.Context, id string) (*Criterion, error)
	Create(ctx context.Context, criterion *Criterion) error
	Update(ctx context.Context, criterion *Criterion) error
	Deactivate(ctx context.Context, id string) error
}

// EventSink persists outcome events to the append-only analytical store.
// A failed insert isolates to its own criterion: the pipeline logs it and
// keeps going.
type EventSink interface {
	Insert(ctx context.Context, event *Event) error
}

// EventReader is the analytical read side over persisted events.
type EventReader interface {
	EventsBySource(ctx context.Context, sourceHash string, limit int) ([]Event, error)
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	CriteriaStats(ctx context.Context, days int) ([]CriterionStats, error)
	DailyStats(ctx context.Context, days int) ([]DailyStats, error)
}

// ProgressPublisher emits incremental snapshots of pipeline state. It is an
// observability side channel: publish failures never gate progression.
type ProgressPublisher interface {
	Publish(ctx context.Context, jobID string, snapshot *ProgressSnapshot) error
}
