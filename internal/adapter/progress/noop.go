package progress

import (
	"context"

	"criteria-analyzer/internal/domain"
)

// NoopPublisher satisfies runs that have no external observer, e.g.
// synchronous or test invocations.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (*NoopPublisher) Publish(context.Context, string, *domain.ProgressSnapshot) error {
	return nil
}

var _ domain.ProgressPublisher = (*NoopPublisher)(nil)
