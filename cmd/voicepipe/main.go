package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auralab/voicepipe/internal/audio"
	"github.com/auralab/voicepipe/internal/config"
	"github.com/auralab/voicepipe/internal/elevenlabs"
	"github.com/auralab/voicepipe/internal/observability"
	"github.com/auralab/voicepipe/internal/playback"
	"github.com/auralab/voicepipe/internal/resilience"
)

func main() {
	var (
		text       = flag.String("text", "", "Text to synthesize; reads stdin lines when empty")
		voiceID    = flag.String("voice", "", "Voice ID, overrides VOICE_ID")
		voiceName  = flag.String("voice-name", "", "Resolve the voice by name from the account catalog")
		format     = flag.String("format", "", "Output format, overrides OUTPUT_FORMAT")
		cacheFmt   = flag.String("cache", "", "Cache container: none, wav or ogg; overrides CACHE_FORMAT")
		stream     = flag.Bool("stream", false, "Stream the response instead of buffering it")
		timestamps = flag.Bool("timestamps", false, "Collect character timestamps (implies -stream)")
		play       = flag.Bool("play", false, "Play PCM audio through the host device as it arrives")
		listVoices = flag.Bool("list-voices", false, "Print the account voice catalog and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if *voiceID == "" {
		*voiceID = cfg.VoiceID
	}
	if *format == "" {
		*format = cfg.OutputFormat
	}
	if *cacheFmt == "" {
		*cacheFmt = cfg.CacheFormat
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Interrupted, cancelling")
		cancel()
	}()

	if cfg.MetricsEnabled {
		go app.serveMetrics(cfg.MetricsAddr)
	}

	if *listVoices {
		if err := app.printVoices(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to list voices")
		}
		return
	}

	if *voiceName != "" {
		id, err := app.resolveVoice(ctx, *voiceName)
		if err != nil {
			logger.Fatal().Err(err).Str("voice_name", *voiceName).Msg("Failed to resolve voice")
		}
		*voiceID = id
	}
	if *voiceID == "" {
		logger.Fatal().Msg("No voice selected: set VOICE_ID, -voice or -voice-name")
	}

	opts := synthOptions{
		voiceID:    *voiceID,
		format:     elevenlabs.OutputFormat(*format),
		cache:      elevenlabs.CacheFormat(*cacheFmt),
		stream:     *stream || *timestamps || *play,
		timestamps: *timestamps,
		play:       *play,
	}

	if *text != "" {
		if err := app.synthesize(ctx, *text, opts); err != nil {
			logger.Fatal().Err(err).Msg("Synthesis failed")
		}
		return
	}

	// Batch mode: one synthesis per stdin line, under retry and breaker
	// protection so a flaky API does not abort the whole run.
	if err := app.runBatch(ctx, os.Stdin, opts); err != nil {
		logger.Fatal().Err(err).Msg("Batch run failed")
	}
}

func (a *app) runBatch(ctx context.Context, in *os.File, opts synthOptions) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}

		err := a.breaker.Call(ctx, func(ctx context.Context) error {
			return resilience.Retry(ctx, func(ctx context.Context) error {
				return a.synthesize(ctx, text, opts)
			}, a.retryCfg)
		})
		if err != nil {
			a.log.Error().Err(err).Int("line", line).Msg("Synthesis failed, continuing batch")
		}
	}
	return scanner.Err()
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"cache": a.cacheCheck(),
	}))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	a.log.Info().Str("addr", addr).Msg("Metrics listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error().Err(err).Msg("Metrics server failed")
	}
}

// playStream wires a synthesis run into the audio device: partial clips feed
// a chunk buffer that the device drains concurrently.
func (a *app) playStream(ctx context.Context, req elevenlabs.SynthesisRequest) error {
	player, err := playback.NewPlayer(req.OutputFormat.SampleRate(), a.log)
	if err != nil {
		return err
	}
	defer player.Close()

	buf := audio.NewChunkBuffer()
	streamer, err := player.Play(buf, 1)
	if err != nil {
		return err
	}

	clip, err := a.pipeline.Synthesize(ctx, req, func(c *elevenlabs.VoiceClip) {
		buf.Append(c.Audio)
	})
	buf.Close()
	if err != nil {
		return err
	}

	if err := player.Wait(streamer, playbackTimeout(clip)); err != nil {
		return err
	}
	return nil
}

// playbackTimeout allows the clip duration plus a margin for device latency.
func playbackTimeout(clip *elevenlabs.VoiceClip) time.Duration {
	d := time.Duration(clip.Duration() * float64(time.Second))
	return d + 5*time.Second
}
