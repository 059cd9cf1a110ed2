package queue

import "context"

// GradeJob is the payload carried on the grading queue. Delivery is
// at-least-once; the dispatcher is idempotent at the record level.
type GradeJob struct {
	SubmissionID uint `json:"submission_id"`
}

// Enqueuer schedules a submission for background grading. Fire-and-forget:
// the call returns once the job is handed to the transport, not when grading
// completes.
type Enqueuer interface {
	Enqueue(ctx context.Context, submissionID uint) error
}

// Handler consumes one grading job.
type Handler func(ctx context.Context, submissionID uint)
