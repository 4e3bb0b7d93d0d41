// Package content builds learning material on top of the completion client.
//
// Text, Code and Visual differ only in their prompt template. Audio reuses
// Text and then synthesizes speech from at most the first MaxSpeechChars
// characters of the explanation.
package content

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"learnsphere/internal/core"
	"learnsphere/internal/util"

	"github.com/dustin/go-humanize"
)

// Config wires a Generator to its collaborators.
type Config struct {
	Completer   core.Completer
	Synthesizer core.SpeechSynthesizer
	Audio       *AudioStore
	Logger      core.Logger
}

// Generator produces content for every mode. It holds no per-request state.
type Generator struct {
	completer core.Completer
	synth     core.SpeechSynthesizer
	audio     *AudioStore
	logger    core.Logger
}

// Request selects what to generate.
type Request struct {
	Topic string
	Depth core.Depth
	Mode  core.Mode
}

// AudioArtifact references a synthesized audio file.
type AudioArtifact struct {
	Filename    string
	URL         string
	Size        int64
	SpokenChars int
}

// Result is the output of a successful generation.
type Result struct {
	Topic    string
	Depth    core.Depth
	Mode     core.Mode
	Content  string
	Model    string
	Attempts int
	Message  string
	Audio    *AudioArtifact
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	audio := cfg.Audio
	if audio == nil {
		audio = NewAudioStore(core.DefaultAudioDir)
	}
	return &Generator{
		completer: cfg.Completer,
		synth:     cfg.Synthesizer,
		audio:     audio,
		logger:    logger,
	}
}

// Generate dispatches req to the generator for its mode. Unknown modes fall
// back to text and unknown depths to beginner.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.Depth = core.ParseDepth(string(req.Depth))
	req.Mode = core.ParseMode(string(req.Mode))
	if req.Topic == "" {
		return nil, ErrEmptyTopic
	}

	g.logger.Info("Generating %s content (topic=%q, level=%s)", req.Mode, req.Topic, req.Depth)

	switch req.Mode {
	case core.ModeCode:
		return g.Code(ctx, req.Topic, req.Depth)
	case core.ModeAudio:
		return g.Audio(ctx, req.Topic, req.Depth)
	case core.ModeVisual:
		return g.Visual(ctx, req.Topic, req.Depth)
	default:
		return g.Text(ctx, req.Topic, req.Depth)
	}
}

// Text generates a structured explanation.
func (g *Generator) Text(ctx context.Context, topic string, depth core.Depth) (*Result, error) {
	return g.complete(ctx, core.ModeText, topic, depth, TextPrompt(topic, depth))
}

// Code generates commented example code.
func (g *Generator) Code(ctx context.Context, topic string, depth core.Depth) (*Result, error) {
	return g.complete(ctx, core.ModeCode, topic, depth, CodePrompt(topic, depth))
}

// Visual generates diagram instructions.
func (g *Generator) Visual(ctx context.Context, topic string, depth core.Depth) (*Result, error) {
	res, err := g.complete(ctx, core.ModeVisual, topic, depth, VisualPrompt(topic, depth))
	if err != nil {
		return nil, err
	}
	res.Message = core.VisualContentNotice
	return res, nil
}

// Audio generates a text explanation and stores it as speech.
func (g *Generator) Audio(ctx context.Context, topic string, depth core.Depth) (*Result, error) {
	res, err := g.complete(ctx, core.ModeText, topic, depth, TextPrompt(topic, depth))
	if err != nil {
		return nil, &GenerationError{Mode: core.ModeAudio, Err: err}
	}
	if g.synth == nil {
		return nil, &GenerationError{Mode: core.ModeAudio, Err: &SynthesisError{Err: errNoSynthesizer}}
	}

	spoken := util.TruncateRunes(res.Content, core.MaxSpeechChars)
	spokenChars := utf8.RuneCountInString(spoken)
	g.logger.Info("Converting text to speech (%d characters)...", spokenChars)

	name, size, err := writeAudio(g.audio, func(w io.Writer) error {
		return g.synth.Synthesize(ctx, spoken, core.SpeechLanguage, w)
	})
	if err != nil {
		return nil, &GenerationError{Mode: core.ModeAudio, Err: &SynthesisError{Err: err}}
	}
	g.logger.Info("Audio saved: %s (%s)", name, humanize.Bytes(uint64(size)))

	res.Mode = core.ModeAudio
	res.Message = core.AudioContentNotice
	res.Audio = &AudioArtifact{
		Filename:    name,
		URL:         core.AudioRoutePrefix + name,
		Size:        size,
		SpokenChars: spokenChars,
	}
	return res, nil
}

func (g *Generator) complete(ctx context.Context, mode core.Mode, topic string, depth core.Depth, prompt string) (*Result, error) {
	if g.completer == nil {
		return nil, &GenerationError{Mode: mode, Err: errNoCompleter}
	}
	completion, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Mode: mode, Err: err}
	}
	return &Result{
		Topic:    topic,
		Depth:    depth,
		Mode:     mode,
		Content:  completion.Text,
		Model:    completion.Model,
		Attempts: completion.Attempts,
	}, nil
}
