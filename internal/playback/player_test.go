package playback

import (
	"math"
	"testing"

	"github.com/auralab/voicepipe/internal/audio"
)

func TestStreamer_MonoDuplicatesChannels(t *testing.T) {
	buf := audio.NewChunkBuffer()
	buf.Append(audio.EncodePCM16([]float64{0.5, -0.5}))
	buf.Close()

	s, err := NewStreamer(buf, 22050, 1)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([][2]float64, 4)
	n, ok := s.Stream(samples)
	if !ok || n != 2 {
		t.Fatalf("Expected 2 frames, got n=%d ok=%v", n, ok)
	}

	for i := 0; i < n; i++ {
		if samples[i][0] != samples[i][1] {
			t.Errorf("Frame %d: mono must duplicate into both channels, got %v", i, samples[i])
		}
	}
	if math.Abs(samples[0][0]-0.5) > 1e-4 {
		t.Errorf("Expected first frame near 0.5, got %f", samples[0][0])
	}
}

func TestStreamer_EmptyOpenBufferKeepsPolling(t *testing.T) {
	buf := audio.NewChunkBuffer()

	s, err := NewStreamer(buf, 22050, 1)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([][2]float64, 8)
	n, ok := s.Stream(samples)
	if n != 0 || !ok {
		t.Errorf("Open empty buffer must yield (0, true), got (%d, %v)", n, ok)
	}
}

func TestStreamer_EndsAfterDrain(t *testing.T) {
	buf := audio.NewChunkBuffer()
	buf.Append(audio.EncodePCM16([]float64{0.1}))
	buf.Close()

	s, err := NewStreamer(buf, 22050, 1)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([][2]float64, 8)
	n, ok := s.Stream(samples)
	if n != 1 || !ok {
		t.Fatalf("Expected the buffered frame first, got (%d, %v)", n, ok)
	}

	n, ok = s.Stream(samples)
	if n != 0 || ok {
		t.Errorf("Drained closed buffer must end the stream, got (%d, %v)", n, ok)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done must be closed once the stream ends")
	}
}

func TestStreamer_PartialFrameCarriedAcrossCalls(t *testing.T) {
	buf := audio.NewChunkBuffer()
	// Stereo frame split across two appends: 4 bytes per frame, append 3 then 5.
	pcm := audio.EncodePCM16([]float64{0.25, 0.25, -0.25, -0.25})
	buf.Append(pcm[:3])

	s, err := NewStreamer(buf, 44100, 2)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([][2]float64, 4)
	n, ok := s.Stream(samples)
	if n != 0 || !ok {
		t.Fatalf("Partial frame must not be emitted, got (%d, %v)", n, ok)
	}

	buf.Append(pcm[3:])
	buf.Close()

	n, ok = s.Stream(samples)
	if !ok || n != 2 {
		t.Fatalf("Expected 2 stereo frames after completion, got (%d, %v)", n, ok)
	}
	if math.Abs(samples[0][0]-0.25) > 1e-4 || math.Abs(samples[1][0]+0.25) > 1e-4 {
		t.Errorf("Reassembled frames corrupted: %v %v", samples[0], samples[1])
	}
}

func TestNewStreamer_BadChannels(t *testing.T) {
	if _, err := NewStreamer(audio.NewChunkBuffer(), 22050, 3); err == nil {
		t.Error("Expected error for 3 channels")
	}
	if _, err := NewStreamer(audio.NewChunkBuffer(), 22050, 0); err == nil {
		t.Error("Expected error for 0 channels")
	}
}
