package core

import (
	"context"
	"io"
	"time"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// MetricsCollector receives upstream attempt telemetry from the completion client.
type MetricsCollector interface {
	RecordHTTPRequest(duration time.Duration)
	RecordHTTPError()
	RecordUpstreamAttempt(model string, outcome string, duration time.Duration)
	RecordBackoff(model string, delay time.Duration)
	GetQPS() float64
}

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// SpeechSynthesizer writes synthesized audio for text in the given language to w.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, lang string, w io.Writer) error
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordHTTPRequest(duration time.Duration)                            {}
func (*NopMetrics) RecordHTTPError()                                                    {}
func (*NopMetrics) RecordUpstreamAttempt(model, outcome string, duration time.Duration) {}
func (*NopMetrics) RecordBackoff(model string, delay time.Duration)                     {}
func (*NopMetrics) GetQPS() float64                                                     { return 0 }
