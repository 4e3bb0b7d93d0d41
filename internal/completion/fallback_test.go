package completion

import (
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_Next(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}
	boom := errors.New("boom")

	tests := []struct {
		name    string
		attempt int
		outcome Outcome
		want    Step
	}{
		{"success ends the chain", 0, Success("ok"), Step{State: StateSucceeded, Attempt: 0}},
		{"success after retries", 2, Success("ok"), Step{State: StateSucceeded, Attempt: 2}},
		{"fatal aborts", 0, Fatal(boom), Step{State: StateFatallyFailed, Attempt: 0}},
		{"unavailable abandons without retry", 0, Unavailable(boom), Step{State: StateAbandoned, Attempt: 0}},
		{"first retry waits base", 0, Retryable(boom), Step{State: StateRetrying, Attempt: 1, Delay: 2 * time.Second}},
		{"second retry doubles", 1, Retryable(boom), Step{State: StateRetrying, Attempt: 2, Delay: 4 * time.Second}},
		{"third retry doubles again", 2, Retryable(boom), Step{State: StateRetrying, Attempt: 3, Delay: 8 * time.Second}},
		{"budget exhausted abandons", 3, Retryable(boom), Step{State: StateAbandoned, Attempt: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Next(tt.attempt, tt.outcome)
			if got != tt.want {
				t.Errorf("Next(%d, %s) = %+v, want %+v", tt.attempt, tt.outcome.Kind, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_NoRetries(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}
	got := policy.Next(0, Retryable(errors.New("rate limited")))
	if got.State != StateAbandoned {
		t.Fatalf("expected abandon with zero retry budget, got %s", got.State)
	}
}

func TestRetryPolicy_BackoffStrictlyDoubles(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 10, BaseDelay: 100 * time.Millisecond}
	prev := policy.Backoff(0)
	if prev != 100*time.Millisecond {
		t.Fatalf("first backoff should equal base delay, got %s", prev)
	}
	for attempt := 1; attempt < 10; attempt++ {
		d := policy.Backoff(attempt)
		if d != 2*prev {
			t.Fatalf("backoff(%d) = %s, want %s", attempt, d, 2*prev)
		}
		prev = d
	}
}

func TestRetryPolicy_BackoffZeroBase(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3}
	if d := policy.Backoff(2); d != 0 {
		t.Errorf("zero base delay should yield no wait, got %s", d)
	}
}

func TestState_Terminal(t *testing.T) {
	terminal := map[State]bool{
		StateTryModel:      false,
		StateRetrying:      false,
		StateAbandoned:     true,
		StateSucceeded:     true,
		StateFatallyFailed: true,
	}
	for state, want := range terminal {
		if state.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, !want, want)
		}
	}
}
