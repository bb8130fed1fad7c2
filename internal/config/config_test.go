package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("ELEVENLABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVENLABS_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ElevenLabsAPIKey != "test-api-key" {
		t.Errorf("Expected ElevenLabsAPIKey 'test-api-key', got '%s'", cfg.ElevenLabsAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("ELEVENLABS_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ELEVENLABS_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("ELEVENLABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVENLABS_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ElevenLabsBaseURL != "https://api.elevenlabs.io" {
		t.Errorf("Expected default base URL, got '%s'", cfg.ElevenLabsBaseURL)
	}

	if cfg.ModelID != "eleven_multilingual_v2" {
		t.Errorf("Expected default ModelID 'eleven_multilingual_v2', got '%s'", cfg.ModelID)
	}

	if cfg.OutputFormat != "pcm_22050" {
		t.Errorf("Expected default OutputFormat 'pcm_22050', got '%s'", cfg.OutputFormat)
	}

	if cfg.Stability != 0.5 {
		t.Errorf("Expected default Stability 0.5, got %f", cfg.Stability)
	}

	if cfg.SimilarityBoost != 0.75 {
		t.Errorf("Expected default SimilarityBoost 0.75, got %f", cfg.SimilarityBoost)
	}

	if cfg.StreamLatency != -1 {
		t.Errorf("Expected default StreamLatency -1, got %d", cfg.StreamLatency)
	}

	if cfg.CacheDir != ".voicepipe-cache" {
		t.Errorf("Expected default CacheDir '.voicepipe-cache', got '%s'", cfg.CacheDir)
	}

	if cfg.CacheFormat != "wav" {
		t.Errorf("Expected default CacheFormat 'wav', got '%s'", cfg.CacheFormat)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("ELEVENLABS_API_KEY", "test-api-key")
	os.Setenv("VOICE_ID", "voice-from-env")
	defer os.Unsetenv("ELEVENLABS_API_KEY")
	defer os.Unsetenv("VOICE_ID")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.VoiceID != "voice-from-env" {
		t.Errorf("Expected VoiceID 'voice-from-env', got '%s'", cfg.VoiceID)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	os.Setenv("ELEVENLABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVENLABS_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 200 {
		t.Errorf("Expected default RetryInitialBackoff 200, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Setenv("ELEVENLABS_API_KEY", "test-api-key")
	os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("ELEVENLABS_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled false, got true")
	}

	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected default MetricsAddr ':9090', got '%s'", cfg.MetricsAddr)
	}
}
