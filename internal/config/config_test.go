package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"learnsphere/internal/core"
)

func createModelsTempFile(t *testing.T, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "models.json")
	if err := os.WriteFile(filePath, []byte(content), core.FilePermissionReadWrite); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return filePath
}

// clearEnv blanks every variable LoadServerConfigFromEnv reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "OPENROUTER_API_KEY", "OPENROUTER_API_URL", "OPENROUTER_MODELS",
		"MODELS_CONFIG_PATH", "COMPLETION_TIMEOUT", "COMPLETION_MAX_RETRIES", "COMPLETION_BASE_DELAY",
		"AUDIO_DIR", "STATIC_DIR", "RATE_LIMIT", "CORS_ALLOW_ORIGIN", "APP_REFERER", "APP_TITLE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadModelsConfig_ObjectFormat(t *testing.T) {
	filePath := createModelsTempFile(t, `{"models":["openrouter/auto","mistralai/mistral-7b-instruct"]}`)

	models, err := LoadModelsConfig(filePath)
	if err != nil {
		t.Fatalf("LoadModelsConfig failed: %v", err)
	}
	want := []string{"openrouter/auto", "mistralai/mistral-7b-instruct"}
	if !slices.Equal(models, want) {
		t.Errorf("got %v, want %v", models, want)
	}
}

func TestLoadModelsConfig_ArrayFormat(t *testing.T) {
	filePath := createModelsTempFile(t, `["model-a"," model-b ","model-a",""]`)

	models, err := LoadModelsConfig(filePath)
	if err != nil {
		t.Fatalf("LoadModelsConfig failed: %v", err)
	}
	if !slices.Equal(models, []string{"model-a", "model-b"}) {
		t.Errorf("expected trimmed, de-duplicated order, got %v", models)
	}
}

func TestLoadModelsConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"models":`},
		{"empty list", `[]`},
		{"wrong shape", `{"models":{"a":"b"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadModelsConfig(createModelsTempFile(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadModelsConfig_NonExistentFile(t *testing.T) {
	_, err := LoadModelsConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestResolveModels_Precedence(t *testing.T) {
	filePath := createModelsTempFile(t, `["from-file"]`)
	logger := &core.NopLogger{}

	models, err := ResolveModels("env-a, env-b", filePath, logger)
	if err != nil || !slices.Equal(models, []string{"env-a", "env-b"}) {
		t.Errorf("env list should win, got %v (%v)", models, err)
	}

	models, err = ResolveModels("", filePath, logger)
	if err != nil || !slices.Equal(models, []string{"from-file"}) {
		t.Errorf("file should be used when env is empty, got %v (%v)", models, err)
	}

	models, err = ResolveModels("", "", logger)
	if err != nil || !slices.Equal(models, core.DefaultModels) {
		t.Errorf("defaults expected, got %v (%v)", models, err)
	}
	models[0] = "mutated"
	if core.DefaultModels[0] == "mutated" {
		t.Error("ResolveModels must not alias the default list")
	}
}

func TestLoadServerConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}
	if cfg.Port != core.DefaultPort || cfg.GinMode != core.DefaultGinMode {
		t.Errorf("port/mode = %s/%s", cfg.Port, cfg.GinMode)
	}
	if cfg.APIURL != core.OpenRouterChatEndpoint {
		t.Errorf("APIURL = %s", cfg.APIURL)
	}
	if !slices.Equal(cfg.Models, core.DefaultModels) {
		t.Errorf("Models = %v", cfg.Models)
	}
	if cfg.CompletionTimeout != 30*time.Second || cfg.MaxRetries != 3 || cfg.BaseDelay != 2*time.Second {
		t.Errorf("retry settings = %s/%d/%s", cfg.CompletionTimeout, cfg.MaxRetries, cfg.BaseDelay)
	}
	if cfg.AudioDir != core.DefaultAudioDir {
		t.Errorf("AudioDir = %s", cfg.AudioDir)
	}
	if cfg.APIKey != "" {
		t.Error("APIKey should be empty")
	}
}

func TestLoadServerConfigFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("OPENROUTER_API_KEY", "  sk-test  ")
	t.Setenv("OPENROUTER_MODELS", "m1,m2")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("COMPLETION_MAX_RETRIES", "1")
	t.Setenv("COMPLETION_BASE_DELAY", "250ms")
	t.Setenv("RATE_LIMIT", "0")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "debug" {
		t.Errorf("port/mode = %s/%s", cfg.Port, cfg.GinMode)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey should be trimmed, got %q", cfg.APIKey)
	}
	if !slices.Equal(cfg.Models, []string{"m1", "m2"}) {
		t.Errorf("Models = %v", cfg.Models)
	}
	if cfg.CompletionTimeout != 5*time.Second || cfg.MaxRetries != 1 || cfg.BaseDelay != 250*time.Millisecond {
		t.Errorf("retry settings = %s/%d/%s", cfg.CompletionTimeout, cfg.MaxRetries, cfg.BaseDelay)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
}

func TestLoadServerConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, contains string
	}{
		{"malformed timeout", "COMPLETION_TIMEOUT", "later", "COMPLETION_TIMEOUT"},
		{"malformed retries", "COMPLETION_MAX_RETRIES", "many", "COMPLETION_MAX_RETRIES"},
		{"unknown gin mode", "GIN_MODE", "verbose", "GinMode"},
		{"non-numeric port", "PORT", "http", "Port"},
		{"bad api url", "OPENROUTER_API_URL", "not a url", "APIURL"},
		{"too many retries", "COMPLETION_MAX_RETRIES", "50", "MaxRetries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadServerConfigFromEnv(&core.NopLogger{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should mention %s", err, tt.contains)
			}
		})
	}
}

func TestCompletionConfig(t *testing.T) {
	cfg := ServerConfig{
		APIKey:            "k",
		APIURL:            "http://upstream.test/v1/chat/completions",
		Models:            []string{"a", "b"},
		CompletionTimeout: time.Second,
		MaxRetries:        2,
		BaseDelay:         time.Millisecond,
	}
	cc := cfg.CompletionConfig()
	if cc.APIKey != "k" || cc.BaseURL != cfg.APIURL || cc.MaxRetries != 2 || cc.Timeout != time.Second {
		t.Errorf("unexpected completion config: %+v", cc)
	}
	cc.Models[0] = "changed"
	if cfg.Models[0] != "a" {
		t.Error("CompletionConfig must copy the model list")
	}

	cfg.MaxRetries = 0
	if got := cfg.CompletionConfig().MaxRetries; got >= 0 {
		t.Errorf("zero retries should map to a negative value, got %d", got)
	}
	if got := cfg.CompletionConfig().BaseDelay; got != time.Millisecond {
		t.Errorf("BaseDelay = %s", got)
	}
	cfg.BaseDelay = 0
	if got := cfg.CompletionConfig().BaseDelay; got >= 0 {
		t.Errorf("zero base delay should map to a negative value, got %s", got)
	}
}

func TestDefaultHTTPClientSettings(t *testing.T) {
	settings := DefaultHTTPClientSettings()
	if settings.MaxIdleConns <= 0 {
		t.Error("MaxIdleConns should be positive")
	}
	if settings.IdleConnTimeout <= 0 {
		t.Error("IdleConnTimeout should be positive")
	}
}
