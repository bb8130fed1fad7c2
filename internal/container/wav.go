// Package container renders decoded sample frames into storage containers
// (WAV, OGG/Opus) suitable for the on-disk cache or external players.
package container

import (
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/auralab/voicepipe/internal/audio"
)

// ErrEncodingFailure indicates the underlying codec rejected the encoding
// parameters. Not retryable; the request itself is unencodable.
var ErrEncodingFailure = errors.New("container encoding failure")

const wavBitDepth = 16

// EncodeWAV wraps normalized samples into a 16-bit PCM WAV byte stream.
// Sample count is preserved exactly; samples are treated as already
// interleaved when channels is 2.
func EncodeWAV(samples []float64, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrEncodingFailure, sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrEncodingFailure, channels)
	}

	ints := make([]int, len(samples))
	for i, s := range audio.Quantize(samples) {
		ints[i] = int(s)
	}

	buf := &writeSeekBuffer{}
	enc := wav.NewEncoder(buf, sampleRate, wavBitDepth, channels, 1)
	ib := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return nil, fmt.Errorf("%w: write wav: %v", ErrEncodingFailure, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: close wav encoder: %v", ErrEncodingFailure, err)
	}

	return buf.Bytes(), nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks back
// to patch RIFF chunk sizes on Close, which bytes.Buffer cannot do.
type writeSeekBuffer struct {
	data []byte
	pos  int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}

func (b *writeSeekBuffer) Bytes() []byte {
	return b.data
}
