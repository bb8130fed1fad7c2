package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedData indicates a PCM byte buffer that cannot represent a whole
// number of 16-bit samples.
var ErrMalformedData = errors.New("malformed PCM data")

// BytesPerSample is the width of one 16-bit PCM sample.
const BytesPerSample = 2

// DecodePCM16 converts little-endian 16-bit signed PCM bytes into normalized
// float samples in [-1, 1]. A trailing partial sample is rejected rather than
// truncated so that corruption is never silently absorbed.
// Safe for concurrent use; the function holds no state.
func DecodePCM16(data []byte) ([]float64, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedData, len(data), BytesPerSample)
	}

	samples := make([]float64, len(data)/BytesPerSample)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
		samples[i] = float64(s) / 32768.0
	}
	return samples, nil
}

// EncodePCM16 converts normalized float samples into little-endian 16-bit
// signed PCM bytes. Samples outside [-1, 1] are clamped to the boundary.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(quantize(s)))
	}
	return out
}

// Quantize converts normalized float samples to 16-bit integer samples with
// the same clamping rules as EncodePCM16. Container encoders use this to feed
// integer-based codecs without re-implementing the scaling.
func Quantize(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = quantize(s)
	}
	return out
}

func quantize(s float64) int16 {
	v := int(s * 32768.0)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
