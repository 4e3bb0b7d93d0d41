package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"learnsphere/internal/core"
)

func TestClassifyResponse(t *testing.T) {
	okBody := []byte(`{"choices":[{"message":{"role":"assistant","content":"A decision tree is..."}}]}`)

	tests := []struct {
		name     string
		status   int
		body     []byte
		wantKind OutcomeKind
		wantErr  string
	}{
		{"success", http.StatusOK, okBody, OutcomeSuccess, ""},
		{"malformed success body", http.StatusOK, []byte(`not json`), OutcomeModelUnavailable, KindModelUnavailable},
		{"empty choices", http.StatusOK, []byte(`{"choices":[]}`), OutcomeModelUnavailable, KindModelUnavailable},
		{"empty content", http.StatusOK, []byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`), OutcomeModelUnavailable, KindModelUnavailable},
		{"error object in 200", http.StatusOK, []byte(`{"error":{"message":"provider returned error"}}`), OutcomeModelUnavailable, KindModelUnavailable},
		{"not found", http.StatusNotFound, []byte(`{"error":{"message":"No endpoints found for model"}}`), OutcomeModelUnavailable, KindModelUnavailable},
		{"rate limited", http.StatusTooManyRequests, nil, OutcomeRetryable, KindTransient},
		{"request timeout", http.StatusRequestTimeout, nil, OutcomeRetryable, KindTransient},
		{"unauthorized", http.StatusUnauthorized, []byte(`{"error":{"message":"No auth credentials found"}}`), OutcomeFatal, KindAuthentication},
		{"forbidden", http.StatusForbidden, nil, OutcomeFatal, KindAuthentication},
		{"bad request", http.StatusBadRequest, []byte(`bad`), OutcomeFatal, KindUnclassified},
		{"server error", http.StatusInternalServerError, []byte(`oops`), OutcomeFatal, KindUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyResponse("m1", tt.status, tt.body)
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s (err=%v)", got.Kind, tt.wantKind, got.Err)
			}
			if tt.wantErr == "" {
				if got.Err != nil {
					t.Fatalf("unexpected error: %v", got.Err)
				}
				if got.Text != "A decision tree is..." {
					t.Errorf("text = %q", got.Text)
				}
				return
			}
			if kind := ErrorKind(got.Err); kind != tt.wantErr {
				t.Errorf("ErrorKind = %s, want %s", kind, tt.wantErr)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind OutcomeKind
	}{
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), OutcomeRetryable},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, OutcomeRetryable},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, OutcomeRetryable},
		{"dns", &net.DNSError{Err: "no such host", Name: "openrouter.invalid"}, OutcomeRetryable},
		{"auth message", errors.New("401 Unauthorized: bad key"), OutcomeFatal},
		{"other", errors.New("tls: unknown certificate authority"), OutcomeModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTransportError("m1", tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s (err=%v)", got.Kind, tt.wantKind, got.Err)
			}
		})
	}
}

func TestErrorKind(t *testing.T) {
	exhausted := &ExhaustedError{
		Models:   []string{"a", "b"},
		Failures: []error{&ModelUnavailableError{Model: "a"}, &TransientError{Model: "b", Reason: "rate limited"}},
	}
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEmptyPrompt, KindInvalidArgument},
		{&ConfigurationError{Reason: "missing key"}, KindConfiguration},
		{fmt.Errorf("wrapped: %w", &AuthenticationError{Model: "a"}), KindAuthentication},
		{exhausted, KindExhausted},
		{&UnclassifiedAPIError{StatusCode: 500}, KindUnclassified},
		{errors.New("plain"), KindUnknown},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestOutcomeKind_StringMatchesMetricLabels(t *testing.T) {
	tests := map[OutcomeKind]string{
		OutcomeSuccess:          core.OutcomeLabelSuccess,
		OutcomeRetryable:        core.OutcomeLabelRetryable,
		OutcomeModelUnavailable: core.OutcomeLabelUnavailable,
		OutcomeFatal:            core.OutcomeLabelFatal,
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
