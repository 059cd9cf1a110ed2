package queue

import (
	"context"

	"github.com/rs/zerolog"
)

// InProcessQueue runs grading jobs on a goroutine inside the API process.
// Used when no NATS URL is configured (single-node dev) and in tests.
type InProcessQueue struct {
	handler Handler
	logger  zerolog.Logger
}

// NewInProcessQueue constructs the in-process fallback queue.
func NewInProcessQueue(handler Handler, logger zerolog.Logger) *InProcessQueue {
	return &InProcessQueue{
		handler: handler,
		logger:  logger.With().Str("component", "grading_queue").Logger(),
	}
}

// Enqueue spawns the handler on its own goroutine. The job must outlive the
// triggering request, so the request's cancellation is detached.
func (q *InProcessQueue) Enqueue(ctx context.Context, submissionID uint) error {
	go q.handler(context.WithoutCancel(ctx), submissionID)
	return nil
}
