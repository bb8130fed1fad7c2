package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	decoded, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, s := range samples {
		expected := float64(s) / 32768.0
		if math.Abs(decoded[i]-expected) > 1e-9 {
			t.Errorf("Sample %d: expected %f, got %f", i, expected, decoded[i])
		}
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("Expected error for odd-length input")
	}
	if !errors.Is(err, ErrMalformedData) {
		t.Errorf("Expected ErrMalformedData, got %v", err)
	}
}

func TestDecodePCM16_Empty(t *testing.T) {
	decoded, err := DecodePCM16(nil)
	if err != nil {
		t.Fatalf("DecodePCM16 failed on empty input: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("Expected no samples, got %d", len(decoded))
	}
}

func TestEncodePCM16_Clamping(t *testing.T) {
	data := EncodePCM16([]float64{2.0, -2.0, 1.0, -1.0})

	got := make([]int16, len(data)/2)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	expected := []int16{32767, -32768, 32767, -32768}
	for i, e := range expected {
		if got[i] != e {
			t.Errorf("Sample %d: expected %d, got %d", i, e, got[i])
		}
	}
}

// Round trip: for every valid byte buffer, decode followed by encode must
// reproduce the original bytes exactly. The scaling is chosen so that the
// full int16 range survives the float conversion without quantization loss.
func TestPCM16_RoundTrip(t *testing.T) {
	data := make([]byte, 0, 65536*2)
	for v := -32768; v <= 32767; v++ {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
		data = append(data, b[:]...)
	}

	decoded, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}

	encoded := EncodePCM16(decoded)
	if !bytes.Equal(data, encoded) {
		t.Fatal("Round trip did not reproduce original bytes")
	}
}

func TestQuantize(t *testing.T) {
	got := Quantize([]float64{0, 0.5, -0.5, 1.5, -1.5})
	expected := []int16{0, 16384, -16384, 32767, -32768}
	for i, e := range expected {
		if got[i] != e {
			t.Errorf("Sample %d: expected %d, got %d", i, e, got[i])
		}
	}
}
