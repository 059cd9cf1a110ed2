package ai

import "context"

// GradeInput carries the artefacts needed to grade one submission.
type GradeInput struct {
	SubmittedCode      string
	InstructorSolution string
	GradingParameters  string
}

// GradeResult is the outcome of a grading call. Score is nil when the call
// failed; Feedback then holds a diagnostic message instead of model feedback.
type GradeResult struct {
	Score    *float64
	Feedback string
}

// Failed reports whether the grading call produced no usable score.
func (r GradeResult) Failed() bool {
	return r.Score == nil
}

// Grader scores a code submission against an instructor solution. A call
// failure (timeout, transport error, empty response) is reported through the
// result sentinel rather than an error return; retry policy belongs to the
// caller.
type Grader interface {
	Grade(ctx context.Context, input GradeInput) GradeResult
}
