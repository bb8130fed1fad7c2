package elevenlabs

import (
	"fmt"
	"unicode/utf8"
)

// MaxTextLength is the hard cap on request text, in characters.
const MaxTextLength = 5000

// VoiceSettings are the voice-style parameters sent with every request.
// Both values live in [0, 1].
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// SynthesisRequest is an immutable description of one synthesis call. It is
// created by the caller and never mutated after submission.
type SynthesisRequest struct {
	VoiceID      string
	Text         string
	ModelID      string
	Settings     VoiceSettings
	OutputFormat OutputFormat

	// Latency is the optimize_streaming_latency hint; negative means unset.
	Latency int

	// WithTimestamps requests character-level timing alongside the audio.
	WithTimestamps bool

	// Cache selects the container persisted to the cache store.
	Cache CacheFormat
}

// Validate rejects malformed requests before any I/O happens.
func (r SynthesisRequest) Validate() error {
	if r.VoiceID == "" {
		return &ValidationError{Field: "voice_id", Reason: "must not be empty"}
	}
	if r.Text == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(r.Text); n > MaxTextLength {
		return &ValidationError{Field: "text", Reason: fmt.Sprintf("%d characters exceeds the %d character limit", n, MaxTextLength)}
	}
	if !r.OutputFormat.Valid() {
		return &ValidationError{Field: "output_format", Reason: fmt.Sprintf("unknown format %q", r.OutputFormat)}
	}
	if !r.Cache.Valid() {
		return &ValidationError{Field: "cache", Reason: fmt.Sprintf("unknown cache container %q", r.Cache)}
	}
	if r.Settings.Stability < 0 || r.Settings.Stability > 1 {
		return &ValidationError{Field: "stability", Reason: "must be in [0, 1]"}
	}
	if r.Settings.SimilarityBoost < 0 || r.Settings.SimilarityBoost > 1 {
		return &ValidationError{Field: "similarity_boost", Reason: "must be in [0, 1]"}
	}
	return nil
}

// TimestampedChar ties one character of the source text to its position in
// the generated audio, in seconds.
type TimestampedChar struct {
	Char     string
	StartSec float64
	EndSec   float64
}

// VoiceClip is the result of a synthesis request. The pipeline also hands out
// transient partial clips to progress callbacks; those carry only the chunk
// that just arrived and must not be retained beyond the callback.
type VoiceClip struct {
	// ID is the server-assigned correlation (history item) identifier.
	ID string

	// RequestID identifies the local pipeline run.
	RequestID string

	VoiceID string
	Text    string
	Format  OutputFormat

	// Audio holds the raw bytes in the requested output format.
	Audio []byte

	// Samples holds decoded normalized audio when the format is PCM, nil
	// otherwise.
	Samples []float64

	SampleRate int

	// Chars is the full ordered character timeline; empty unless timestamps
	// were requested.
	Chars []TimestampedChar

	// CachePath is the on-disk location of the persisted clip, empty when
	// caching was off.
	CachePath string

	// Partial marks a transient per-chunk clip delivered to a progress
	// callback.
	Partial bool
}

// Duration returns the clip length in seconds, derived from the decoded
// sample count. Zero for non-PCM clips.
func (c *VoiceClip) Duration() float64 {
	if c.SampleRate == 0 || len(c.Samples) == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}
