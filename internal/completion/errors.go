package completion

import (
	"errors"
	"fmt"
	"strings"
)

// Error kind labels surfaced to API clients.
const (
	KindConfiguration    = "ConfigurationError"
	KindAuthentication   = "AuthenticationError"
	KindModelUnavailable = "ModelUnavailableError"
	KindTransient        = "TransientError"
	KindUnclassified     = "UnclassifiedAPIError"
	KindExhausted        = "ExhaustedError"
	KindInvalidArgument  = "InvalidArgument"
	KindUnknown          = "Error"
)

// ErrEmptyPrompt is returned when Complete is called without a prompt.
var ErrEmptyPrompt = errors.New("completion: prompt is required")

// ConfigurationError reports a missing or invalid client setting. No request
// is sent when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "completion: " + e.Reason
}

// AuthenticationError aborts all fallback attempts.
type AuthenticationError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("OpenRouter API authentication failed (model %s, status %d): %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("OpenRouter API authentication failed (model %s): %s", e.Model, e.Message)
}

// ModelUnavailableError means the candidate cannot serve the request and the
// next candidate should be tried.
type ModelUnavailableError struct {
	Model      string
	StatusCode int
	Reason     string
}

func (e *ModelUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model %s unavailable (status %d): %s", e.Model, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("model %s unavailable: %s", e.Model, e.Reason)
}

// TransientError covers rate limiting, timeouts and connection failures.
type TransientError struct {
	Model      string
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransientError) Error() string {
	msg := fmt.Sprintf("model %s: %s", e.Model, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// UnclassifiedAPIError is a non-2xx response with no specific handling.
type UnclassifiedAPIError struct {
	Model      string
	StatusCode int
	Body       string
}

func (e *UnclassifiedAPIError) Error() string {
	return fmt.Sprintf("OpenRouter API error %d (model %s): %s", e.StatusCode, e.Model, e.Body)
}

// ExhaustedError is returned after every candidate model was abandoned.
type ExhaustedError struct {
	Models   []string
	Failures []error
}

func (e *ExhaustedError) Error() string {
	return "All models failed. Please verify your API key and check OpenRouter status. " +
		"Attempted models: " + strings.Join(e.Models, ", ")
}

func (e *ExhaustedError) Unwrap() []error {
	return e.Failures
}

// ErrorKind returns the label of the outermost classified failure in err.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		cfgErr       *ConfigurationError
		authErr      *AuthenticationError
		exhausted    *ExhaustedError
		unclassified *UnclassifiedAPIError
		unavailable  *ModelUnavailableError
		transient    *TransientError
	)

	switch {
	case errors.Is(err, ErrEmptyPrompt):
		return KindInvalidArgument
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &exhausted):
		return KindExhausted
	case errors.As(err, &unclassified):
		return KindUnclassified
	case errors.As(err, &unavailable):
		return KindModelUnavailable
	case errors.As(err, &transient):
		return KindTransient
	default:
		return KindUnknown
	}
}
