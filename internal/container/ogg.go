package container

import (
	"bytes"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"github.com/auralab/voicepipe/internal/audio"
)

const (
	// oggFrameMs is the Opus frame duration used for encoding.
	oggFrameMs = 20

	// opusRTPClockRate is the RTP clock rate mandated for Opus; page granule
	// positions are derived from it regardless of the input sample rate.
	opusRTPClockRate = 48000

	opusPayloadType = 111

	// maxOpusPacket bounds a single encoded Opus packet.
	maxOpusPacket = 4000
)

// EncodeOgg compresses normalized samples with Opus and frames the packets
// into an OGG byte stream. Opus only accepts 8, 12, 16, 24 and 48 kHz input;
// other rates surface ErrEncodingFailure. The final partial frame is
// zero-padded to the codec's frame boundary, everything before it is
// preserved sample for sample.
func EncodeOgg(samples []float64, sampleRate, channels int) ([]byte, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrEncodingFailure, channels)
	}
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("%w: opus does not support %d Hz input", ErrEncodingFailure, sampleRate)
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("%w: create opus encoder: %v", ErrEncodingFailure, err)
	}

	pcm := audio.Quantize(samples)
	frameLen := sampleRate * oggFrameMs / 1000 * channels
	if rem := len(pcm) % frameLen; rem != 0 {
		pcm = append(pcm, make([]int16, frameLen-rem)...)
	}

	var buf bytes.Buffer
	writer, err := oggwriter.NewWith(&buf, uint32(sampleRate), uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("%w: create ogg writer: %v", ErrEncodingFailure, err)
	}

	packet := make([]byte, maxOpusPacket)
	var seq uint16
	var ts uint32
	for off := 0; off < len(pcm); off += frameLen {
		n, err := enc.Encode(pcm[off:off+frameLen], packet)
		if err != nil {
			return nil, fmt.Errorf("%w: opus encode: %v", ErrEncodingFailure, err)
		}

		payload := make([]byte, n)
		copy(payload, packet[:n])
		rtpPacket := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SequenceNumber: seq,
				Timestamp:      ts,
				SSRC:           1,
			},
			Payload: payload,
		}
		if err := writer.WriteRTP(rtpPacket); err != nil {
			return nil, fmt.Errorf("%w: write ogg page: %v", ErrEncodingFailure, err)
		}

		seq++
		ts += opusRTPClockRate * oggFrameMs / 1000
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close ogg writer: %v", ErrEncodingFailure, err)
	}

	return buf.Bytes(), nil
}
