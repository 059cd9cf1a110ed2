package queue

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const gradingQueueGroup = "codegrade-grading"

// NATSQueue publishes grading jobs to a NATS subject and feeds a queue-group
// worker, so grading runs off the request path and scales across nodes.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSQueue constructs a NATS-backed grading queue.
func NewNATSQueue(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSQueue {
	return &NATSQueue{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "grading_queue").Logger(),
	}
}

// Enqueue publishes a grading job.
func (q *NATSQueue) Enqueue(ctx context.Context, submissionID uint) error {
	payload, err := json.Marshal(GradeJob{SubmissionID: submissionID})
	if err != nil {
		return err
	}
	return q.conn.Publish(q.subject, payload)
}

// StartWorker subscribes to the grading subject within a queue group and
// invokes handler for every job. The subscription is drained when ctx ends.
func (q *NATSQueue) StartWorker(ctx context.Context, handler Handler) error {
	sub, err := q.conn.QueueSubscribe(q.subject, gradingQueueGroup, func(msg *nats.Msg) {
		var job GradeJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			q.logger.Warn().Err(err).Msg("invalid grading job payload")
			return
		}
		handler(ctx, job.SubmissionID)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			q.logger.Warn().Err(err).Msg("failed to drain grading subscription")
		}
	}()

	return nil
}
