// Package queue implements the job transport on Redis lists: one pending
// list plus TTL-bounded result keys per job.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"criteria-analyzer/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueKey is the pending-jobs list.
	QueueKey = "text_analysis"

	resultKeyPrefix = "job_result:"
)

// DefaultResultTTL bounds how long a finished job's result stays readable.
const DefaultResultTTL = time.Hour

// Job is one queued request to evaluate a single document.
type Job struct {
	ID           string    `json:"job_id"`
	Text         string    `json:"text"`
	SourceURL    string    `json:"source_url,omitempty"`
	SourceDate   string    `json:"source_date,omitempty"`
	ForceRecheck bool      `json:"force_recheck,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// ResultKey returns the result key for a job id.
func ResultKey(jobID string) string {
	return resultKeyPrefix + jobID
}

// Queue is the Redis-backed job transport.
type Queue struct {
	client    *redis.Client
	resultTTL time.Duration
}

// NewQueue creates a queue handle. resultTTL <= 0 falls back to the default.
func NewQueue(client *redis.Client, resultTTL time.Duration) *Queue {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	return &Queue{client: client, resultTTL: resultTTL}
}

// Enqueue pushes a job onto the pending list, assigning an id when the caller
// did not provide one. Returns the job id.
func (q *Queue) Enqueue(ctx context.Context, job *Job) (string, error) {
	if job.Text == "" {
		return "", domain.ErrEmptyText
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueKey, payload).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// Dequeue blocks up to the given timeout for the next job. Returns nil when
// the queue stayed empty.
func (q *Queue) Dequeue(ctx context.Context, block time.Duration) (*Job, error) {
	res, err := q.client.BLPop(ctx, block, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BLPop returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// PublishResult stores the outcome under the job's result key with a bounded
// TTL, mirroring the queue substrate's result window.
func (q *Queue) PublishResult(ctx context.Context, jobID string, outcome *domain.AnalysisOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}
	if err := q.client.Set(ctx, ResultKey(jobID), payload, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job result: %w", err)
	}
	return nil
}

// Result reads a finished job's outcome, or nil when it is unknown or has
// expired.
func (q *Queue) Result(ctx context.Context, jobID string) (*domain.AnalysisOutcome, error) {
	raw, err := q.client.Get(ctx, ResultKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job result: %w", err)
	}
	var outcome domain.AnalysisOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
	}
	return &outcome, nil
}

// Length reports how many jobs are pending.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, QueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}
