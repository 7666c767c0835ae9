package evaluate

import "context"

// Result is the evaluator collaborator's output. Quality of the content is
// the caller's concern: malformed or low-confidence output that arrives
// without an error is stored as-is.
type Result struct {
	Score     float64  `json:"score"`
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Risks     []string `json:"risks"`
}

// Evaluator is the external AI evaluation collaborator. Errors (including
// timeouts) are retryable; the queue applies the backoff policy.
type Evaluator interface {
	Evaluate(ctx context.Context, notes string) (*Result, error)
}
