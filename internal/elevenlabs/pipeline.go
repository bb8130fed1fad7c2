package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/auralab/voicepipe/internal/audio"
	"github.com/auralab/voicepipe/internal/cache"
	"github.com/auralab/voicepipe/internal/container"
	"github.com/auralab/voicepipe/internal/observability"
)

// Mode selects how a response body is consumed.
type Mode int

const (
	// ModeBuffered reads the full response body before proceeding; no chunk
	// emission.
	ModeBuffered Mode = iota

	// ModeStreaming drives the demultiplexer and delivers partial clips as
	// data arrives.
	ModeStreaming
)

func (m Mode) String() string {
	if m == ModeStreaming {
		return "streaming"
	}
	return "buffered"
}

// ChunkFunc receives a transient partial clip per stream chunk. Invocations
// happen strictly in chunk-arrival order. The clip must not be retained
// beyond the callback.
type ChunkFunc func(clip *VoiceClip)

// Pipeline orchestrates one synthesis request end to end: validation,
// transport, demultiplexing, assembly and cache persistence. A Pipeline is
// stateless between calls; independent requests may run concurrently.
type Pipeline struct {
	client *Client
	store  *cache.Store
	log    zerolog.Logger
}

// NewPipeline creates a pipeline on top of client and store.
func NewPipeline(client *Client, store *cache.Store, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		store:  store,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Synthesize runs req through the pipeline and returns the assembled clip.
// When onChunk is non-nil the request streams and onChunk is invoked per
// chunk; otherwise the response is buffered whole. A request uses exactly one
// of the two modes, never both.
//
// Cancellation of ctx is surfaced as ErrCancelled. Other failures carry the
// typed error of the stage that raised them.
func (p *Pipeline) Synthesize(ctx context.Context, req SynthesisRequest, onChunk ChunkFunc) (*VoiceClip, error) {
	mode := ModeBuffered
	if onChunk != nil {
		mode = ModeStreaming
	}

	if err := req.Validate(); err != nil {
		observability.RecordSynthesis("invalid", mode.String())
		return nil, err
	}

	requestID := uuid.NewString()
	log := p.log.With().
		Str("request_id", requestID).
		Str("voice_id", req.VoiceID).
		Str("output_format", string(req.OutputFormat)).
		Stringer("mode", mode).
		Logger()
	start := time.Now()

	clip, err := p.run(ctx, req, mode, requestID, onChunk, log)
	if err != nil {
		status := "error"
		if errors.Is(err, ErrCancelled) {
			status = "cancelled"
		}
		observability.RecordSynthesis(status, mode.String())
		return nil, err
	}

	observability.RecordSynthesis("success", mode.String())
	observability.ObserveSynthesisDuration(time.Since(start))
	log.Info().
		Str("history_item_id", clip.ID).
		Int("audio_bytes", len(clip.Audio)).
		Int("characters", len(clip.Chars)).
		Str("cache_path", clip.CachePath).
		Dur("elapsed", time.Since(start)).
		Msg("synthesis complete")
	return clip, nil
}

func (p *Pipeline) run(ctx context.Context, req SynthesisRequest, mode Mode, requestID string, onChunk ChunkFunc, log zerolog.Logger) (*VoiceClip, error) {
	if mode == ModeBuffered && req.WithTimestamps {
		log.Warn().Msg("timestamps require streaming mode, none will be collected")
	}

	httpReq, err := p.client.newSynthesisRequest(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	historyID := resp.Header.Get(HeaderHistoryItemID)
	if historyID == "" {
		return nil, fmt.Errorf("%w: response missing %s header", ErrProtocolViolation, HeaderHistoryItemID)
	}

	var audioBuf bytes.Buffer
	var chars []TimestampedChar

	switch mode {
	case ModeBuffered:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			return nil, fmt.Errorf("read response body: %w", err)
		}
		audioBuf.Write(body)

	case ModeStreaming:
		if err := p.consumeStream(ctx, req, requestID, historyID, resp.Body, onChunk, &audioBuf, &chars, log); err != nil {
			return nil, err
		}
	}

	// Assembling: the final clip owns the concatenation of every chunk in
	// arrival order.
	clip := &VoiceClip{
		ID:         historyID,
		RequestID:  requestID,
		VoiceID:    req.VoiceID,
		Text:       req.Text,
		Format:     req.OutputFormat,
		Audio:      audioBuf.Bytes(),
		SampleRate: req.OutputFormat.SampleRate(),
		Chars:      chars,
	}

	if req.OutputFormat.IsPCM() {
		samples, err := audio.DecodePCM16(clip.Audio)
		if err != nil {
			return nil, err
		}
		clip.Samples = samples
	}

	if req.Cache != CacheNone {
		path, err := p.persist(req, clip)
		if err != nil {
			return nil, err
		}
		clip.CachePath = path
	}

	return clip, nil
}

// consumeStream drives the demultiplexer, accumulates audio and transcript in
// arrival order and delivers a partial clip per chunk.
func (p *Pipeline) consumeStream(ctx context.Context, req SynthesisRequest, requestID, historyID string, body io.Reader, onChunk ChunkFunc, audioBuf *bytes.Buffer, chars *[]TimestampedChar, log zerolog.Logger) error {
	demuxMode := DemuxPlain
	if req.WithTimestamps {
		demuxMode = DemuxTimestamps
	}
	demux := NewDemuxer(demuxMode, log)
	chunks, errs := demux.Run(ctx, body)

	// pcmCarry holds a trailing odd byte between plain-mode reads so partial
	// clips always decode whole samples. The accumulated audio is unaffected.
	var pcmCarry []byte

	for chunk := range chunks {
		audioBuf.Write(chunk.Audio)
		*chars = append(*chars, chunk.Chars...)
		observability.RecordChunk(len(chunk.Audio))

		partial := &VoiceClip{
			ID:         historyID,
			RequestID:  requestID,
			VoiceID:    req.VoiceID,
			Text:       req.Text,
			Format:     req.OutputFormat,
			Audio:      chunk.Audio,
			SampleRate: req.OutputFormat.SampleRate(),
			Chars:      chunk.Chars,
			Partial:    true,
		}
		if req.OutputFormat.IsPCM() {
			segment := chunk.Audio
			if len(pcmCarry) > 0 {
				segment = append(append([]byte{}, pcmCarry...), chunk.Audio...)
			}
			whole := len(segment) &^ 1
			pcmCarry = append(pcmCarry[:0], segment[whole:]...)

			samples, err := audio.DecodePCM16(segment[:whole])
			if err == nil {
				partial.Samples = samples
			}
		}

		p.invokeCallback(onChunk, partial, log)
	}

	if err := <-errs; err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return err
	}
	if len(pcmCarry) > 0 {
		log.Warn().Int("bytes", len(pcmCarry)).Msg("stream ended on a partial PCM sample")
	}
	return nil
}

// invokeCallback delivers a partial clip best-effort: a panic inside caller
// code is caught and logged, and the pipeline proceeds to the next chunk.
func (p *Pipeline) invokeCallback(fn ChunkFunc, clip *VoiceClip, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("progress callback panicked, continuing")
		}
	}()
	fn(clip)
}

// persist writes the clip through the container mapping: MP3 output is always
// cached as an MP3 passthrough regardless of the requested container, PCM
// output goes through the selected WAV or OGG encoder.
func (p *Pipeline) persist(req SynthesisRequest, clip *VoiceClip) (string, error) {
	var (
		ext     string
		payload []byte
		err     error
	)

	if !req.OutputFormat.IsPCM() {
		ext = "mp3"
		payload = clip.Audio
	} else {
		switch req.Cache {
		case CacheWAV:
			ext = "wav"
			payload, err = container.EncodeWAV(clip.Samples, clip.SampleRate, 1)
		case CacheOgg:
			ext = "ogg"
			payload, err = container.EncodeOgg(clip.Samples, clip.SampleRate, 1)
		default:
			return "", fmt.Errorf("no container mapping for cache format %q", req.Cache)
		}
		if err != nil {
			return "", err
		}
	}

	path := p.store.ResolvePath(req.VoiceID, req.Text, string(req.OutputFormat), ext)
	if p.store.Exists(path) {
		observability.RecordCacheEvent("hit")
		return path, nil
	}
	observability.RecordCacheEvent("miss")

	if err := p.store.Write(path, payload); err != nil {
		return "", err
	}
	observability.RecordCacheEvent("write")
	return path, nil
}

// Cached reports whether a clip for req is already on disk, without touching
// the network. Callers can use it to skip redundant synthesis entirely.
func (p *Pipeline) Cached(req SynthesisRequest) (string, bool) {
	if req.Cache == CacheNone {
		return "", false
	}
	ext := "mp3"
	if req.OutputFormat.IsPCM() {
		ext = string(req.Cache)
	}
	path := p.store.ResolvePath(req.VoiceID, req.Text, string(req.OutputFormat), ext)
	return path, p.store.Exists(path)
}
