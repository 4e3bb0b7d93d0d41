package completion

import "time"

// State is a position in the per-model fallback state machine.
type State int

const (
	StateTryModel State = iota
	StateRetrying
	StateAbandoned
	StateSucceeded
	StateFatallyFailed
)

func (s State) String() string {
	switch s {
	case StateTryModel:
		return "try_model"
	case StateRetrying:
		return "retrying"
	case StateAbandoned:
		return "abandoned"
	case StateSucceeded:
		return "succeeded"
	case StateFatallyFailed:
		return "fatally_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempt is made on the current model.
func (s State) Terminal() bool {
	return s == StateAbandoned || s == StateSucceeded || s == StateFatallyFailed
}

// Step is the transition produced by RetryPolicy.Next. Attempt is the
// zero-based index of the next attempt on the same model; Delay is the wait
// before it.
type Step struct {
	State   State
	Attempt int
	Delay   time.Duration
}

// RetryPolicy bounds retries of a single model.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// maxShift keeps BaseDelay << attempt from overflowing.
const maxShift = 30

// Backoff returns the delay before the retry that follows attempt.
// attempt 0 -> base, attempt 1 -> base*2, attempt 2 -> base*4, ...
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt < 0 {
		return 0
	}
	return p.BaseDelay << min(attempt, maxShift)
}

// Next maps the outcome of attempt (zero-based) to the next step.
func (p RetryPolicy) Next(attempt int, outcome Outcome) Step {
	switch outcome.Kind {
	case OutcomeSuccess:
		return Step{State: StateSucceeded, Attempt: attempt}
	case OutcomeFatal:
		return Step{State: StateFatallyFailed, Attempt: attempt}
	case OutcomeRetryable:
		if attempt < p.MaxRetries {
			return Step{State: StateRetrying, Attempt: attempt + 1, Delay: p.Backoff(attempt)}
		}
		return Step{State: StateAbandoned, Attempt: attempt}
	default:
		return Step{State: StateAbandoned, Attempt: attempt}
	}
}
