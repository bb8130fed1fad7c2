package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/auralab/voicepipe/internal/observability"
)

// DemuxMode selects how the demultiplexer interprets the byte stream.
type DemuxMode int

const (
	// DemuxPlain treats every transport read as one opaque audio chunk.
	DemuxPlain DemuxMode = iota

	// DemuxTimestamps treats the stream as newline-delimited JSON records
	// carrying base64 audio plus character alignment.
	DemuxTimestamps
)

// StreamChunk is one unit emitted during streaming: an audio byte segment
// and, in timestamp mode, the characters it covers. Chunks are emitted in
// arrival order and must be consumed in order.
type StreamChunk struct {
	Audio []byte
	Chars []TimestampedChar
}

// Demuxer splits a raw response body into an ordered sequence of stream
// chunks. It has no terminal success state of its own; completion is the
// underlying transport reaching end-of-stream.
type Demuxer struct {
	mode     DemuxMode
	readSize int
	log      zerolog.Logger
}

// NewDemuxer creates a demultiplexer for the given mode.
func NewDemuxer(mode DemuxMode, log zerolog.Logger) *Demuxer {
	return &Demuxer{
		mode:     mode,
		readSize: 4096,
		log:      log.With().Str("component", "demux").Logger(),
	}
}

// Run consumes r until end-of-stream, producing chunks on the returned
// channel in arrival order. The error channel carries at most one terminal
// error; both channels are closed when the stream ends or ctx is cancelled.
// Run does not close r.
func (d *Demuxer) Run(ctx context.Context, r io.Reader) (<-chan StreamChunk, <-chan error) {
	out := make(chan StreamChunk)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		var err error
		switch d.mode {
		case DemuxTimestamps:
			err = d.runTimestamps(ctx, r, out)
		default:
			err = d.runPlain(ctx, r, out)
		}
		if err != nil {
			errs <- err
		}
	}()

	return out, errs
}

// runPlain forwards each transport read as one opaque chunk. PCM decoding and
// MP3 passthrough are the consumer's concern; the bytes are never touched.
func (d *Demuxer) runPlain(ctx context.Context, r io.Reader, out chan<- StreamChunk) error {
	buf := make([]byte, d.readSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- StreamChunk{Audio: chunk}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read audio stream: %w", readErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// runTimestamps accumulates reads into a line buffer, emitting one chunk per
// complete JSON line. The trailing possibly-incomplete line is retained
// across reads, so chunk-boundary placement cannot affect the parsed output.
func (d *Demuxer) runTimestamps(ctx context.Context, r io.Reader, out chan<- StreamChunk) error {
	buf := make([]byte, d.readSize)
	var pending []byte

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]

				chunk, ok := d.parseLine(line)
				if !ok {
					continue
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if readErr == io.EOF {
			if len(bytes.TrimSpace(pending)) > 0 {
				// A well-formed stream ends on a line boundary; leftover
				// data is suspicious but not fatal.
				d.log.Warn().Int("bytes", len(pending)).Msg("discarding incomplete trailing record at end of stream")
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read timestamp stream: %w", readErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// timestampRecord is the wire shape of one line in timestamp mode.
type timestampRecord struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

type alignment struct {
	Characters                 []string  `json:"characters"`
	CharacterStartTimesSeconds []float64 `json:"character_start_times_seconds"`
	CharacterEndTimesSeconds   []float64 `json:"character_end_times_seconds"`
}

// parseLine decodes a single JSON record. A malformed line is a recoverable
// event: it is logged, counted and skipped, and the stream continues.
func (d *Demuxer) parseLine(line []byte) (StreamChunk, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StreamChunk{}, false
	}

	var rec timestampRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		d.log.Warn().Err(err).Int("bytes", len(line)).Msg("skipping malformed stream record")
		observability.RecordSkippedRecord()
		return StreamChunk{}, false
	}

	audio, err := base64.StdEncoding.DecodeString(rec.AudioBase64)
	if err != nil {
		d.log.Warn().Err(err).Msg("skipping stream record with undecodable audio")
		observability.RecordSkippedRecord()
		return StreamChunk{}, false
	}

	var chars []TimestampedChar
	if rec.Alignment != nil {
		n := len(rec.Alignment.Characters)
		if len(rec.Alignment.CharacterStartTimesSeconds) < n {
			n = len(rec.Alignment.CharacterStartTimesSeconds)
		}
		if len(rec.Alignment.CharacterEndTimesSeconds) < n {
			n = len(rec.Alignment.CharacterEndTimesSeconds)
		}
		chars = make([]TimestampedChar, 0, n)
		for i := 0; i < n; i++ {
			chars = append(chars, TimestampedChar{
				Char:     rec.Alignment.Characters[i],
				StartSec: rec.Alignment.CharacterStartTimesSeconds[i],
				EndSec:   rec.Alignment.CharacterEndTimesSeconds[i],
			})
		}
	}

	return StreamChunk{Audio: audio, Chars: chars}, true
}
