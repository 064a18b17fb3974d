// Package progress publishes transient pipeline-state snapshots so external
// observers can poll incremental job state.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"criteria-analyzer/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "job_progress:"

// DefaultTTL bounds how long a snapshot outlives its last write.
const DefaultTTL = time.Hour

// Key returns the progress key for a job id.
func Key(jobID string) string {
	return keyPrefix + jobID
}

// RedisPublisher stores snapshots as TTL-bounded JSON values keyed by job id.
// Each write overwrites the previous snapshot.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublisher creates a publisher with the given expiry window.
func NewRedisPublisher(client *redis.Client, ttl time.Duration) *RedisPublisher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPublisher{client: client, ttl: ttl}
}

func (p *RedisPublisher) Publish(ctx context.Context, jobID string, snapshot *domain.ProgressSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal progress snapshot: %w", err)
	}
	if err := p.client.Set(ctx, Key(jobID), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store progress snapshot: %w", err)
	}
	return nil
}

// Fetch reads the current snapshot for a job, or nil when none exists (never
// written, or expired).
func (p *RedisPublisher) Fetch(ctx context.Context, jobID string) (*domain.ProgressSnapshot, error) {
	raw, err := p.client.Get(ctx, Key(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress snapshot: %w", err)
	}
	var snapshot domain.ProgressSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress snapshot: %w", err)
	}
	return &snapshot, nil
}

var _ domain.ProgressPublisher = (*RedisPublisher)(nil)
