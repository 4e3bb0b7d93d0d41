package core

// OpenRouter endpoint and request defaults
const (
	OpenRouterChatEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	DefaultReferer         = "http://localhost:5000"
	DefaultTitle           = "LearnSphere"
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 2000
)

// DefaultModels is the ordered fallback chain used when none is configured.
var DefaultModels = []string{
	"openrouter/auto",
	"meta-llama/llama-2-7b-chat",
	"mistralai/mistral-7b-instruct",
}

// Speech synthesis constants
const (
	MaxSpeechChars      = 5000
	SpeechLanguage      = "en"
	AudioFilePrefix     = "explanation_"
	AudioFileExtension  = ".mp3"
	AudioFileIDLength   = 8
	AudioRoutePrefix    = "/audio/"
	VisualContentNotice = "Use this prompt with Mermaid or draw.io"
	AudioContentNotice  = "Audio file generated successfully"
)

// Upstream attempt outcome labels reported to core.MetricsCollector
const (
	OutcomeLabelSuccess     = "success"
	OutcomeLabelRetryable   = "retryable"
	OutcomeLabelUnavailable = "unavailable"
	OutcomeLabelFatal       = "fatal"
)
