package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voicepipe CLI and pipeline
type Config struct {
	// ElevenLabs API configuration
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" required:"true"`
	ElevenLabsBaseURL string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`

	// Synthesis defaults, overridable per request via CLI flags
	VoiceID         string  `envconfig:"VOICE_ID" default:""`                       // Default voice identifier
	ModelID         string  `envconfig:"MODEL_ID" default:"eleven_multilingual_v2"` // Synthesis model
	OutputFormat    string  `envconfig:"OUTPUT_FORMAT" default:"pcm_22050"`         // mp3_* or pcm_* format tag
	Stability       float64 `envconfig:"VOICE_STABILITY" default:"0.5"`             // Voice stability, 0..1
	SimilarityBoost float64 `envconfig:"VOICE_SIMILARITY_BOOST" default:"0.75"`     // Similarity boost, 0..1
	StreamLatency   int     `envconfig:"STREAM_LATENCY" default:"-1"`               // optimize_streaming_latency, -1 omits it

	// Cache configuration
	CacheDir    string `envconfig:"CACHE_DIR" default:".voicepipe-cache"` // Root of the on-disk clip cache
	CacheFormat string `envconfig:"CACHE_FORMAT" default:"wav"`           // none, wav or ogg

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"200"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`        // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`      // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"` // Expose Prometheus metrics over HTTP
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`    // Listen address for metrics and health
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ElevenLabsAPIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
