package search

import "bskb/internal/model"

// OutcomeState tags what a retrieval branch produced.
type OutcomeState string

const (
	// StateOk means the branch returned without error
	StateOk OutcomeState = "ok"
	// StateDegraded means the branch failed and its results were absorbed
	// as an empty list
	StateDegraded OutcomeState = "degraded"
	// StateInvalid means the request was rejected before the branch ran
	StateInvalid OutcomeState = "invalid"
)

// Outcome is the result of one retrieval branch. Failures never
// propagate as errors past the branch boundary; they surface here as a
// degraded state with a reason.
type Outcome struct {
	Branch  string
	State   OutcomeState
	Results []model.RetrievalResult
	Reason  string
}

// Ok wraps a successful branch result.
func Ok(branch string, results []model.RetrievalResult) Outcome {
	return Outcome{Branch: branch, State: StateOk, Results: results}
}

// Degraded records a failed branch with no results.
func Degraded(branch string, reason string) Outcome {
	return Outcome{Branch: branch, State: StateDegraded, Reason: reason}
}
