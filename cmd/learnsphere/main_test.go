package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"learnsphere/internal/core"
	"learnsphere/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setupCLIEnv(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("OPENROUTER_API_URL", apiURL)
	t.Setenv("OPENROUTER_MODELS", "m1,m2")
	t.Setenv("MODELS_CONFIG_PATH", "")
	t.Setenv("COMPLETION_MAX_RETRIES", "0")
	t.Setenv("COMPLETION_BASE_DELAY", "1ms")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("GIN_MODE", "test")
	t.Setenv("PORT", "5000")
	t.Setenv("AUDIO_DIR", filepath.Join(dir, "audio"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("STATS_DB", "")
	t.Setenv("STATS_FILE", filepath.Join(dir, "stats.json"))
	return dir
}

func fakeUpstream(t *testing.T, handler func(model string, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req core.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		handler(req.Model, w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelsCommand_JSON(t *testing.T) {
	setupCLIEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runCLI(t, "models", "--json")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var entries []modelEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if len(entries) != 2 || entries[0].Model != "m1" || entries[0].Role != "primary" || entries[1].Role != "fallback" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestModelsCommand_DefaultChainTable(t *testing.T) {
	setupCLIEnv(t, "http://127.0.0.1:1")
	t.Setenv("OPENROUTER_MODELS", "")

	stdout, _, err := runCLI(t, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, m := range core.DefaultModels {
		if !strings.Contains(stdout, m) {
			t.Errorf("table missing %s:\n%s", m, stdout)
		}
	}
	if !strings.Contains(stdout, "primary") {
		t.Errorf("table missing role column:\n%s", stdout)
	}
}

func TestRootCommand_ExplicitEnvFileMustExist(t *testing.T) {
	setupCLIEnv(t, "http://127.0.0.1:1")
	missing := filepath.Join(t.TempDir(), "missing.env")

	if _, _, err := runCLI(t, "--env-file", missing, "models"); err == nil {
		t.Fatal("expected error for a missing explicit env file")
	}
}

func TestGenerateCommand_JSON(t *testing.T) {
	upstream := fakeUpstream(t, func(model string, w http.ResponseWriter) {
		if model == "m1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Gradient descent explained"}}},
		})
	})
	setupCLIEnv(t, upstream.URL)

	stdout, _, err := runCLI(t, "generate", "--topic", "gradient descent", "--depth", "Advanced", "--json")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var out generateOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if !out.Success || out.Content != "Gradient descent explained" || out.Model != "m2" {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Depth != "advanced" || out.Mode != "text" || out.Attempts != 2 {
		t.Errorf("unexpected metadata: %+v", out)
	}
}

func TestGenerateCommand_VisualText(t *testing.T) {
	upstream := fakeUpstream(t, func(_ string, w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "graph TD; A-->B"}}},
		})
	})
	setupCLIEnv(t, upstream.URL)

	stdout, stderr, err := runCLI(t, "generate", "-t", "pipelines", "-m", "visual")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(stdout, "graph TD; A-->B") || !strings.Contains(stdout, core.VisualContentNotice) {
		t.Errorf("unexpected stdout:\n%s", stdout)
	}
	if !strings.Contains(stderr, "Generated by m1 after 1 attempt(s)") {
		t.Errorf("unexpected stderr:\n%s", stderr)
	}
}

func TestGenerateCommand_AuthFailure(t *testing.T) {
	upstream := fakeUpstream(t, func(_ string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	setupCLIEnv(t, upstream.URL)

	_, _, err := runCLI(t, "generate", "--topic", "svm")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "AuthenticationError: ") {
		t.Errorf("error = %v", err)
	}
}

func TestGenerateCommand_RequiresTopic(t *testing.T) {
	setupCLIEnv(t, "http://127.0.0.1:1")
	if _, _, err := runCLI(t, "generate"); err == nil {
		t.Fatal("expected missing --topic error")
	}
}

func TestStatsCommand(t *testing.T) {
	dir := setupCLIEnv(t, "http://127.0.0.1:1")

	store := storage.NewFileStorage(filepath.Join(dir, "stats.json"))
	err := store.SaveStats(&core.RequestStats{
		TotalRequests:      3,
		SuccessfulRequests: 2,
		FailedRequests:     1,
		TotalResponseTime:  3000,
		LastRequestTime:    time.Now().Add(-time.Minute),
		RequestHistory: []core.RequestRecord{
			{Timestamp: time.Now().Add(-time.Minute), Success: true, ResponseTime: 1000, Model: "m1", Mode: "text"},
		},
		Models: map[string]core.ModelStats{"m1": {Attempts: 4, Successes: 2, Retryable: 2}},
	})
	if err != nil {
		t.Fatalf("SaveStats: %v", err)
	}
	_ = store.Close()

	stdout, _, err := runCLI(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Overview", "Total requests", "1s", "24 hours", "Models", "m1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, "stats", "--json")
	if err != nil {
		t.Fatalf("stats --json: %v", err)
	}
	var summary struct {
		TotalRequests int64 `json:"totalRequests"`
		Models        []struct {
			Model    string `json:"model"`
			Attempts int64  `json:"attempts"`
		} `json:"models"`
	}
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if summary.TotalRequests != 3 || len(summary.Models) != 1 || summary.Models[0].Attempts != 4 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestStatsCommand_Empty(t *testing.T) {
	setupCLIEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runCLI(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(stdout, "never") || strings.Contains(stdout, "Models") {
		t.Errorf("unexpected output for empty stats:\n%s", stdout)
	}
}
