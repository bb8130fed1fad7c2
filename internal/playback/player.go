// Package playback plays synthesized PCM through the host audio device as it
// streams in, backed by an unbounded chunk buffer between the synthesis
// pipeline and the beep sample loop.
package playback

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/auralab/voicepipe/internal/audio"
)

// Streamer adapts a ChunkBuffer to beep.Streamer. It is non-blocking: an
// empty buffer with an open producer yields silence until more audio arrives,
// so playback can start before synthesis has finished.
type Streamer struct {
	buf        *audio.ChunkBuffer
	channels   int
	sampleRate beep.SampleRate

	// carry holds a trailing partial frame between Stream calls.
	carry []byte

	done chan struct{}
	err  error
}

// NewStreamer wraps buf as a beep streamer for 16-bit little-endian PCM at
// the given rate. channels must be 1 or 2.
func NewStreamer(buf *audio.ChunkBuffer, sampleRate, channels int) (*Streamer, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("playback supports 1 or 2 channels, got %d", channels)
	}
	return &Streamer{
		buf:        buf,
		channels:   channels,
		sampleRate: beep.SampleRate(sampleRate),
		done:       make(chan struct{}),
	}, nil
}

// Stream fills samples from the buffer. It returns (0, true) when the buffer
// is momentarily empty but the producer is still open, which tells beep to
// keep polling rather than end the stream.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	bytesPerFrame := s.channels * audio.BytesPerSample

	chunk := make([]byte, len(samples)*bytesPerFrame-len(s.carry))
	n, err := s.buf.Read(chunk)

	data := append(s.carry, chunk[:n]...)
	frames := len(data) / bytesPerFrame
	s.carry = append([]byte(nil), data[frames*bytesPerFrame:]...)

	if frames == 0 {
		if err != nil {
			s.finish()
			return 0, false
		}
		return 0, true
	}

	for i := 0; i < frames; i++ {
		off := i * bytesPerFrame
		if s.channels == 1 {
			v := pcm16ToFloat(data[off:])
			samples[i][0] = v
			samples[i][1] = v
		} else {
			samples[i][0] = pcm16ToFloat(data[off:])
			samples[i][1] = pcm16ToFloat(data[off+2:])
		}
	}

	return frames, true
}

func pcm16ToFloat(b []byte) float64 {
	if len(b) < 2 {
		return 0
	}
	return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
}

// Err returns the terminal stream error, if any.
func (s *Streamer) Err() error {
	return s.err
}

// Done is closed when the stream has drained.
func (s *Streamer) Done() <-chan struct{} {
	return s.done
}

func (s *Streamer) finish() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// Player owns the host audio device. A process holds at most one Player;
// speaker initialization is global.
type Player struct {
	sampleRate beep.SampleRate
	log        zerolog.Logger
}

// NewPlayer initializes the audio device at the given sample rate with a
// 100ms mixing buffer.
func NewPlayer(sampleRate int, log zerolog.Logger) (*Player, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init audio device: %w", err)
	}
	return &Player{
		sampleRate: sr,
		log:        log.With().Str("component", "playback").Logger(),
	}, nil
}

// Play starts playing from buf and returns a streamer whose Done channel is
// closed once the buffer has fully drained after the producer closes it.
func (p *Player) Play(buf *audio.ChunkBuffer, channels int) (*Streamer, error) {
	s, err := NewStreamer(buf, int(p.sampleRate), channels)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Int("sample_rate", int(p.sampleRate)).Int("channels", channels).Msg("playback started")
	speaker.Play(s)
	return s, nil
}

// Wait blocks until the streamer has drained or the timeout elapses.
func (p *Player) Wait(s *Streamer, timeout time.Duration) error {
	select {
	case <-s.Done():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("playback did not finish within %v", timeout)
	}
}

// Close releases the audio device.
func (p *Player) Close() {
	speaker.Close()
}
