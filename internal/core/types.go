package core

import (
	"strings"
	"time"
)

// Depth controls explanation complexity.
type Depth string

const (
	DepthBeginner     Depth = "beginner"
	DepthIntermediate Depth = "intermediate"
	DepthAdvanced     Depth = "advanced"
)

// ParseDepth normalizes s, falling back to DepthBeginner for unknown values.
func ParseDepth(s string) Depth {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case DepthBeginner, DepthIntermediate, DepthAdvanced:
		return d
	default:
		return DepthBeginner
	}
}

// Mode selects which content shape is produced.
type Mode string

const (
	ModeText   Mode = "text"
	ModeCode   Mode = "code"
	ModeAudio  Mode = "audio"
	ModeVisual Mode = "visual"
)

// ParseMode normalizes s, falling back to ModeText for unknown values.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeText, ModeCode, ModeAudio, ModeVisual:
		return m
	default:
		return ModeText
	}
}

// Completion is the successful result of a resilient completion call.
type Completion struct {
	Text     string
	Model    string
	Attempts int
}

// ChatMessage is a single message in an upstream chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the upstream request body.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatCompletionResponse is the subset of the upstream response that is consumed.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RequestStats holds aggregated request statistics for monitoring.
type RequestStats struct {
	TotalRequests      int64                 `json:"total_requests"`
	SuccessfulRequests int64                 `json:"successful_requests"`
	FailedRequests     int64                 `json:"failed_requests"`
	TotalResponseTime  int64                 `json:"total_response_time"`
	LastRequestTime    time.Time             `json:"last_request_time"`
	RequestHistory     []RequestRecord       `json:"request_history"`
	Models             map[string]ModelStats `json:"models"`
}

// RequestRecord represents a single generation's metadata for history tracking.
type RequestRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ResponseTime int64     `json:"response_time"`
	Model        string    `json:"model"`
	Mode         string    `json:"mode"`
	ErrorKind    string    `json:"error_kind,omitempty"`
}

// ModelStats counts upstream attempt outcomes for one candidate model.
type ModelStats struct {
	Attempts         int64 `json:"attempts"`
	Successes        int64 `json:"successes"`
	Retryable        int64 `json:"retryable"`
	Unavailable      int64 `json:"unavailable"`
	Fatal            int64 `json:"fatal"`
	Backoffs         int64 `json:"backoffs"`
	TotalBackoffMs   int64 `json:"total_backoff_ms"`
	TotalAttemptTime int64 `json:"total_attempt_time"`
}

// PeriodStats holds computed statistics for a time period.
type PeriodStats struct {
	Requests        int64   `json:"requests"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	QPS             float64 `json:"qps"`
}
