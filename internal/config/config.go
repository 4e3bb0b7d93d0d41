package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"learnsphere/internal/completion"
	"learnsphere/internal/core"
	"learnsphere/internal/util"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ServerConfig server configuration
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"required,oneof=debug release test"`

	APIKey  string
	APIURL  string   `validate:"required,url"`
	Models  []string `validate:"required,min=1,dive,required"`
	Referer string
	Title   string

	ModelsConfigPath string

	CompletionTimeout time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"gte=0,lte=10"`
	BaseDelay         time.Duration `validate:"gte=0"`

	AudioDir        string `validate:"required"`
	StaticDir       string `validate:"required"`
	RateLimit       int    `validate:"gte=0"`
	CORSAllowOrigin string

	HTTPClientSettings HTTPClientSettings
	Storage            core.StorageInterface `validate:"-"`
	Logger             core.Logger           `validate:"-"`
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
	}
}

// ModelsFile is the object form of a models config file.
type ModelsFile struct {
	Models []string `json:"models"`
}

// LoadModelsConfig reads an ordered model list from path. Both a bare JSON
// array and {"models": [...]} are accepted.
func LoadModelsConfig(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from config, not user input
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var models []string
	var file ModelsFile
	if err := sonic.Unmarshal(data, &file); err == nil {
		models = file.Models
	} else if err := sonic.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cleaned := make([]string, 0, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" && !slices.Contains(cleaned, m) {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%s contains no models", path)
	}
	return cleaned, nil
}

// ResolveModels picks the candidate list: OPENROUTER_MODELS, then the models
// file, then the built-in chain.
func ResolveModels(envList, path string, logger core.Logger) ([]string, error) {
	if models := util.ParseEnvList(envList); len(models) > 0 {
		logger.Info("Loaded %d models from OPENROUTER_MODELS", len(models))
		return models, nil
	}
	if path != "" {
		models, err := LoadModelsConfig(path)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded %d models from %s", len(models), path)
		return models, nil
	}
	return slices.Clone(core.DefaultModels), nil
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if apiKey == "" {
		logger.Warn("OPENROUTER_API_KEY environment variable is empty, every generation will fail")
	} else {
		logger.Info("OpenRouter API key loaded (%s)", util.MaskSecret(apiKey))
	}

	modelsPath := os.Getenv("MODELS_CONFIG_PATH")
	models, err := ResolveModels(os.Getenv("OPENROUTER_MODELS"), modelsPath, logger)
	if err != nil {
		return ServerConfig{}, err
	}

	var errs []error
	timeout, err := util.GetEnvDuration("COMPLETION_TIMEOUT", core.DefaultCompletionTimeout)
	errs = append(errs, err)
	maxRetries, err := util.GetEnvInt("COMPLETION_MAX_RETRIES", core.DefaultMaxRetries)
	errs = append(errs, err)
	baseDelay, err := util.GetEnvDuration("COMPLETION_BASE_DELAY", core.DefaultBaseDelay)
	errs = append(errs, err)
	rateLimit, err := util.GetEnvInt("RATE_LIMIT", core.DefaultRateLimit)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return ServerConfig{}, err
	}

	config := ServerConfig{
		Port:               util.GetEnvWithDefault("PORT", core.DefaultPort),
		GinMode:            util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode),
		APIKey:             apiKey,
		APIURL:             util.GetEnvWithDefault("OPENROUTER_API_URL", core.OpenRouterChatEndpoint),
		Models:             models,
		Referer:            util.GetEnvWithDefault("APP_REFERER", core.DefaultReferer),
		Title:              util.GetEnvWithDefault("APP_TITLE", core.DefaultTitle),
		ModelsConfigPath:   modelsPath,
		CompletionTimeout:  timeout,
		MaxRetries:         maxRetries,
		BaseDelay:          baseDelay,
		AudioDir:           util.GetEnvWithDefault("AUDIO_DIR", core.DefaultAudioDir),
		StaticDir:          util.GetEnvWithDefault("STATIC_DIR", core.DefaultStaticDir),
		RateLimit:          rateLimit,
		CORSAllowOrigin:    util.GetEnvWithDefault("CORS_ALLOW_ORIGIN", "*"),
		HTTPClientSettings: DefaultHTTPClientSettings(),
	}

	if err := config.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return config, nil
}

// Validate checks field constraints.
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CompletionConfig derives the completion client configuration.
func (c *ServerConfig) CompletionConfig() completion.Config {
	// completion.Config treats zero as "use default"
	retries := c.MaxRetries
	if retries == 0 {
		retries = -1
	}
	delay := c.BaseDelay
	if delay == 0 {
		delay = -1
	}
	return completion.Config{
		APIKey:     c.APIKey,
		BaseURL:    c.APIURL,
		Models:     slices.Clone(c.Models),
		Referer:    c.Referer,
		Title:      c.Title,
		Timeout:    c.CompletionTimeout,
		MaxRetries: retries,
		BaseDelay:  delay,
	}
}
