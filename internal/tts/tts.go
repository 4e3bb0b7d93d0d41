// Package tts synthesizes speech through the Google Translate TTS endpoint.
//
// The endpoint only accepts short inputs, so text is split into chunks of at
// most ChunkSize runes on word boundaries. Each chunk is fetched as MP3 and the
// segments are written back to back, which players treat as one stream.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"learnsphere/internal/core"
)

const (
	defaultEndpoint  = "https://translate.google.com/translate_tts"
	defaultChunkSize = 100
	defaultTimeout   = 30 * time.Second
	userAgent        = "Mozilla/5.0 (compatible; LearnSphere/1.0)"
)

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("tts: text is empty")

// StatusError is returned when the endpoint rejects a chunk.
type StatusError struct {
	StatusCode int
	Chunk      int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts: chunk %d: http %d: %s", e.Chunk, e.StatusCode, e.Body)
}

// Config captures the endpoint settings.
type Config struct {
	Endpoint  string
	ChunkSize int
	Timeout   time.Duration
	Slow      bool
}

// GoogleTranslate implements core.SpeechSynthesizer.
type GoogleTranslate struct {
	cfg        Config
	httpClient *http.Client
	logger     core.Logger
}

// Option customizes the synthesizer.
type Option func(*GoogleTranslate)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *GoogleTranslate) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(g *GoogleTranslate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGoogleTranslate builds a synthesizer, filling defaults for zero values.
func NewGoogleTranslate(cfg Config, opts ...Option) *GoogleTranslate {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	g := &GoogleTranslate{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     &core.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Synthesize writes MP3 audio for text to w.
func (g *GoogleTranslate) Synthesize(ctx context.Context, text, lang string, w io.Writer) error {
	chunks := SplitText(text, g.cfg.ChunkSize)
	if len(chunks) == 0 {
		return ErrEmptyText
	}
	if lang == "" {
		lang = core.SpeechLanguage
	}

	g.logger.Debug("Synthesizing %d characters in %d chunk(s)", utf8.RuneCountInString(text), len(chunks))
	for i, chunk := range chunks {
		if err := g.fetchChunk(ctx, chunk, lang, i, len(chunks), w); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoogleTranslate) fetchChunk(ctx context.Context, chunk, lang string, idx, total int, w io.Writer) error {
	speed := "1"
	if g.cfg.Slow {
		speed = "0.3"
	}
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", lang)
	query.Set("q", chunk)
	query.Set("ttsspeed", speed)
	query.Set("total", strconv.Itoa(total))
	query.Set("idx", strconv.Itoa(idx))
	query.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts: chunk %d: %w", idx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, core.MaxErrorBodyPreview))
		return &StatusError{StatusCode: resp.StatusCode, Chunk: idx, Body: strings.TrimSpace(string(body))}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("tts: chunk %d: write audio: %w", idx, err)
	}
	return nil
}

// SplitText breaks text into chunks of at most limit runes, preferring word
// boundaries. Words longer than limit are split mid-word.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = defaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(runes) == 0 {
			continue
		}

		needed := len(runes)
		if currentLen > 0 {
			needed++
		}
		if currentLen+needed > limit {
			flush()
			needed = len(runes)
		}
		if currentLen > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(string(runes))
		currentLen += needed
	}
	flush()

	return chunks
}
