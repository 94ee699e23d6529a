package pipeline

import "resumeagent/internal/types"

// Decision is the outcome of evaluating the review loop after a pass
type Decision int

const (
	// Continue sends the run back for another improvement pass
	Continue Decision = iota
	// Accept exits the loop because the score reached the threshold
	Accept
	// Exhausted exits the loop because the iteration budget is spent
	Exhausted
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case Accept:
		return "accept"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// outcome maps an exit decision to the value reported to callers
func (d Decision) outcome() string {
	switch d {
	case Accept:
		return types.OutcomeAccepted
	case Exhausted:
		return types.OutcomeExhausted
	}
	return ""
}

const (
	DefaultScoreThreshold = 85
	DefaultMaxIterations  = 3
)

// Policy decides whether the review loop continues
type Policy struct {
	ScoreThreshold int
	MaxIterations  int
}

// DefaultPolicy returns the 85 point, 3 pass policy
func DefaultPolicy() Policy {
	return Policy{ScoreThreshold: DefaultScoreThreshold, MaxIterations: DefaultMaxIterations}
}

// Decide is a pure function of the last score and the number of completed
// improvement passes. A passing score wins over an exhausted budget.
func (p Policy) Decide(score, iteration int) Decision {
	if score >= p.ScoreThreshold {
		return Accept
	}
	if iteration >= p.MaxIterations {
		return Exhausted
	}
	return Continue
}

// maxLoopBacks is how many times the engine may return to the improver:
// one fewer than the number of passes allowed.
func (p Policy) maxLoopBacks() int {
	return max(p.MaxIterations-1, 0)
}
