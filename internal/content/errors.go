package content

import (
	"errors"
	"fmt"

	"learnsphere/internal/completion"
	"learnsphere/internal/core"
)

// KindSynthesis labels audio synthesis failures.
const KindSynthesis = "SynthesisError"

var (
	// ErrEmptyTopic is returned when a request carries no topic.
	ErrEmptyTopic = errors.New("topic is required")
	// ErrInvalidFilename is returned for audio names that could escape the audio directory.
	ErrInvalidFilename = errors.New("invalid filename")

	errNoCompleter   = errors.New("no completion client configured")
	errNoSynthesizer = errors.New("no speech synthesizer configured")
)

// GenerationError wraps any failure of a content generator.
type GenerationError struct {
	Mode core.Mode
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Failed to generate %s content: %v", e.Mode, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// SynthesisError reports that speech could not be produced or stored.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return "speech synthesis failed: " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// ErrorKind returns the label reported to API clients for err.
func ErrorKind(err error) string {
	var synthErr *SynthesisError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyTopic):
		return completion.KindInvalidArgument
	case errors.As(err, &synthErr):
		return KindSynthesis
	default:
		return completion.ErrorKind(err)
	}
}
