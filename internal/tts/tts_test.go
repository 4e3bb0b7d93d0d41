package tts

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "   ", 10, nil},
		{"fits", "hello world", 20, []string{"hello world"}},
		{"word boundary", "one two three four", 9, []string{"one two", "three", "four"}},
		{"long word", "abcdefghij xy", 4, []string{"abcd", "efgh", "ij", "xy"}},
		{"collapses whitespace", "a\n\nb\tc", 10, []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitText(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitText = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitText_RespectsLimit(t *testing.T) {
	text := strings.Repeat("gradient descent lowers loss step by step ", 50)
	for _, chunk := range SplitText(text, 100) {
		if n := utf8.RuneCountInString(chunk); n > 100 {
			t.Fatalf("chunk exceeds limit: %d runes", n)
		}
	}
}

func TestGoogleTranslate_Synthesize(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()
		if r.URL.Query().Get("tl") != "en" {
			t.Errorf("unexpected language %q", r.URL.Query().Get("tl"))
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-" + r.URL.Query().Get("idx") + ";"))
	}))
	defer server.Close()

	g := NewGoogleTranslate(Config{Endpoint: server.URL, ChunkSize: 10})
	var buf bytes.Buffer
	if err := g.Synthesize(context.Background(), "one two three four", "en", &buf); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 chunk requests, got %v", queries)
	}
	if buf.String() != "ID3-0;ID3-1;" {
		t.Errorf("audio segments not concatenated in order: %q", buf.String())
	}
}

func TestGoogleTranslate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGoogleTranslate(Config{Endpoint: server.URL})
	err := g.Synthesize(context.Background(), "hello", "en", &bytes.Buffer{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
}

func TestGoogleTranslate_EmptyText(t *testing.T) {
	g := NewGoogleTranslate(Config{})
	if err := g.Synthesize(context.Background(), " ", "en", &bytes.Buffer{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}
