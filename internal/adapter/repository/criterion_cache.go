package repository

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"criteria-analyzer/internal/domain"
)

const activeCriteriaKey = "active"

// DefaultCriteriaCacheTTL bounds how stale the cached active set may get for
// edits made by another process. Writes through this repository invalidate
// immediately.
const DefaultCriteriaCacheTTL = 30 * time.Second

// cachedCriterionRepository decorates a CriterionRepository with a TTL cache
// of the active set, so a burst of jobs does not re-query criteria that
// change rarely. Only ListActive is cached; management reads stay live.
type cachedCriterionRepository struct {
	inner domain.CriterionRepository
	cache *lru.LRU[string, []domain.Criterion]
}

// NewCachedCriterionRepository wraps inner with an active-set cache.
// ttl <= 0 falls back to the default.
func NewCachedCriterionRepository(inner domain.CriterionRepository, ttl time.Duration) domain.CriterionRepository {
	if ttl <= 0 {
		ttl = DefaultCriteriaCacheTTL
	}
	return &cachedCriterionRepository{
		inner: inner,
		cache: lru.NewLRU[string, []domain.Criterion](1, nil, ttl),
	}
}

func (r *cachedCriterionRepository) ListActive(ctx context.Context) ([]domain.Criterion, error) {
	if cached, ok := r.cache.Get(activeCriteriaKey); ok {
		return cached, nil
	}
	criteria, err := r.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Add(activeCriteriaKey, criteria)
	return criteria, nil
}

func (r *cachedCriterionRepository) List(ctx context.Context) ([]domain.Criterion, error) {
	return r.inner.List(ctx)
}

func (r *cachedCriterionRepository) Get(ctx context.Context, id string) (*domain.Criterion, error) {
	return r.inner.Get(ctx, id)
}

func (r *cachedCriterionRepository) Create(ctx context.Context, criterion *domain.Criterion) error {
	if err := r.inner.Create(ctx, criterion); err != nil {
		return err
	}
	r.cache.Remove(activeCriteriaKey)
	return nil
}

func (r *cachedCriterionRepository) Update(ctx context.Context, criterion *domain.Criterion) error {
	if err := r.inner.Update(ctx, criterion); err != nil {
		return err
	}
	r.cache.Remove(activeCriteriaKey)
	return nil
}

func (r *cachedCriterionRepository) Deactivate(ctx context.Context, id string) error {
	if err := r.inner.Deactivate(ctx, id); err != nil {
		return err
	}
	r.cache.Remove(activeCriteriaKey)
	return nil
}
