package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"learnsphere/internal/core"

	"github.com/bytedance/sonic"
)

// OutcomeKind tags the result of a single upstream attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeModelUnavailable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return core.OutcomeLabelSuccess
	case OutcomeRetryable:
		return core.OutcomeLabelRetryable
	case OutcomeModelUnavailable:
		return core.OutcomeLabelUnavailable
	case OutcomeFatal:
		return core.OutcomeLabelFatal
	default:
		return "unknown"
	}
}

// Outcome is produced once per upstream attempt and consumed by RetryPolicy.Next.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Success builds a successful outcome.
func Success(text string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// Retryable builds a transient-failure outcome.
func Retryable(err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Err: err}
}

// Unavailable builds a model-unavailable outcome.
func Unavailable(err error) Outcome {
	return Outcome{Kind: OutcomeModelUnavailable, Err: err}
}

// Fatal builds an outcome that aborts the whole completion.
func Fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}

var authMarkers = []string{"unauthorized", "forbidden", "authentication", "invalid api key", "no auth credentials"}

// classifyResponse maps an upstream HTTP response to an Outcome.
func classifyResponse(model string, status int, body []byte) Outcome {
	switch {
	case status >= 200 && status < 300:
		return parseCompletion(model, status, body)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Fatal(&AuthenticationError{Model: model, StatusCode: status, Message: bodyPreview(body)})
	case status == http.StatusNotFound:
		return Unavailable(&ModelUnavailableError{Model: model, StatusCode: status, Reason: bodyPreview(body)})
	case status == http.StatusTooManyRequests:
		return Retryable(&TransientError{Model: model, StatusCode: status, Reason: "rate limited"})
	case status == http.StatusRequestTimeout:
		return Retryable(&TransientError{Model: model, StatusCode: status, Reason: "upstream request timeout"})
	default:
		return Fatal(&UnclassifiedAPIError{Model: model, StatusCode: status, Body: bodyPreview(body)})
	}
}

func parseCompletion(model string, status int, body []byte) Outcome {
	var resp core.ChatCompletionResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return Unavailable(&ModelUnavailableError{Model: model, StatusCode: status, Reason: fmt.Sprintf("malformed response: %v", err)})
	}
	if resp.Error != nil {
		return Unavailable(&ModelUnavailableError{Model: model, StatusCode: status, Reason: strings.TrimSpace(resp.Error.Message)})
	}
	if len(resp.Choices) == 0 {
		return Unavailable(&ModelUnavailableError{Model: model, StatusCode: status, Reason: "response has no choices"})
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Unavailable(&ModelUnavailableError{Model: model, StatusCode: status, Reason: "empty completion content"})
	}
	return Success(text)
}

// classifyTransportError maps a failure to send or read a request to an Outcome.
func classifyTransportError(model string, err error) Outcome {
	if isTimeout(err) {
		return Retryable(&TransientError{Model: model, Reason: "timeout", Err: err})
	}
	if isConnectionError(err) {
		return Retryable(&TransientError{Model: model, Reason: "connection error", Err: err})
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return Fatal(&AuthenticationError{Model: model, Message: err.Error()})
		}
	}

	return Unavailable(&ModelUnavailableError{Model: model, Reason: err.Error()})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func bodyPreview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > core.MaxErrorBodyPreview {
		return text[:core.MaxErrorBodyPreview] + "..."
	}
	return text
}
