package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/auralab/voicepipe/internal/cache"
	"github.com/auralab/voicepipe/internal/config"
	"github.com/auralab/voicepipe/internal/elevenlabs"
	"github.com/auralab/voicepipe/internal/observability"
	"github.com/auralab/voicepipe/internal/resilience"
)

type synthOptions struct {
	voiceID    string
	format     elevenlabs.OutputFormat
	cache      elevenlabs.CacheFormat
	stream     bool
	timestamps bool
	play       bool
}

type app struct {
	cfg      *config.Config
	pipeline *elevenlabs.Pipeline
	registry *elevenlabs.VoiceRegistry
	breaker  *resilience.CircuitBreaker
	retryCfg *resilience.RetryConfig
	log      zerolog.Logger
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	client := elevenlabs.NewClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey, nil, log)
	store := cache.NewStore(cfg.CacheDir, log)

	return &app{
		cfg:      cfg,
		pipeline: elevenlabs.NewPipeline(client, store, log),
		registry: elevenlabs.NewVoiceRegistry(client),
		breaker: resilience.NewCircuitBreaker(
			"elevenlabs",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retryCfg: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		log: log,
	}, nil
}

func (a *app) request(text string, opts synthOptions) elevenlabs.SynthesisRequest {
	return elevenlabs.SynthesisRequest{
		VoiceID: opts.voiceID,
		Text:    text,
		ModelID: a.cfg.ModelID,
		Settings: elevenlabs.VoiceSettings{
			Stability:       a.cfg.Stability,
			SimilarityBoost: a.cfg.SimilarityBoost,
		},
		OutputFormat:   opts.format,
		Latency:        a.cfg.StreamLatency,
		WithTimestamps: opts.timestamps,
		Cache:          opts.cache,
	}
}

func (a *app) synthesize(ctx context.Context, text string, opts synthOptions) error {
	req := a.request(text, opts)

	if path, ok := a.pipeline.Cached(req); ok {
		a.log.Info().Str("path", path).Msg("Clip already cached, skipping synthesis")
		return nil
	}

	if opts.play {
		if !req.OutputFormat.IsPCM() {
			return fmt.Errorf("playback requires a PCM output format, got %s", req.OutputFormat)
		}
		return a.playStream(ctx, req)
	}

	var onChunk elevenlabs.ChunkFunc
	if opts.stream {
		onChunk = func(c *elevenlabs.VoiceClip) {
			a.log.Debug().
				Int("bytes", len(c.Audio)).
				Int("characters", len(c.Chars)).
				Msg("Chunk received")
		}
	}

	clip, err := a.pipeline.Synthesize(ctx, req, onChunk)
	if err != nil {
		return err
	}

	for _, c := range clip.Chars {
		fmt.Printf("%s\t%.3f\t%.3f\n", c.Char, c.StartSec, c.EndSec)
	}
	if clip.CachePath != "" {
		fmt.Println(clip.CachePath)
	}
	return nil
}

func (a *app) printVoices(ctx context.Context) error {
	if err := a.registry.Refresh(ctx); err != nil {
		return err
	}
	for _, v := range a.registry.List() {
		fmt.Printf("%s\t%s\t%s\n", v.ID, v.Name, v.Category)
	}
	return nil
}

func (a *app) resolveVoice(ctx context.Context, name string) (string, error) {
	if err := a.registry.Refresh(ctx); err != nil {
		return "", err
	}
	v, ok := a.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("no voice named %q in the account catalog", name)
	}
	return v.ID, nil
}

func (a *app) cacheCheck() observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		info, err := os.Stat(a.cfg.CacheDir)
		if os.IsNotExist(err) {
			// The store creates it lazily on first write.
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if !info.IsDir() {
			return false, fmt.Errorf("cache path %s is not a directory", a.cfg.CacheDir)
		}
		return true, nil
	}
}
