package elevenlabs

import (
	"strconv"
	"strings"
)

// OutputFormat is the textual form of the output_format query parameter.
type OutputFormat string

// Output formats accepted by the synthesis endpoints.
const (
	FormatMP322050Hz32kbps  OutputFormat = "mp3_22050_32"
	FormatMP344100Hz32kbps  OutputFormat = "mp3_44100_32"
	FormatMP344100Hz64kbps  OutputFormat = "mp3_44100_64"
	FormatMP344100Hz96kbps  OutputFormat = "mp3_44100_96"
	FormatMP344100Hz128kbps OutputFormat = "mp3_44100_128"
	FormatMP344100Hz192kbps OutputFormat = "mp3_44100_192"
	FormatPCM16000Hz        OutputFormat = "pcm_16000"
	FormatPCM22050Hz        OutputFormat = "pcm_22050"
	FormatPCM24000Hz        OutputFormat = "pcm_24000"
	FormatPCM44100Hz        OutputFormat = "pcm_44100"
)

var knownFormats = map[OutputFormat]struct{}{
	FormatMP322050Hz32kbps:  {},
	FormatMP344100Hz32kbps:  {},
	FormatMP344100Hz64kbps:  {},
	FormatMP344100Hz96kbps:  {},
	FormatMP344100Hz128kbps: {},
	FormatMP344100Hz192kbps: {},
	FormatPCM16000Hz:        {},
	FormatPCM22050Hz:        {},
	FormatPCM24000Hz:        {},
	FormatPCM44100Hz:        {},
}

// Valid reports whether f names a known output format.
func (f OutputFormat) Valid() bool {
	_, ok := knownFormats[f]
	return ok
}

// IsPCM reports whether f produces raw PCM bytes rather than MP3 frames.
func (f OutputFormat) IsPCM() bool {
	return strings.HasPrefix(string(f), "pcm_")
}

// SampleRate returns the sample rate encoded in the format name, or 0 for an
// unknown format.
func (f OutputFormat) SampleRate() int {
	if !f.Valid() {
		return 0
	}
	parts := strings.Split(string(f), "_")
	rate, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return rate
}

// CacheFormat selects the container used when persisting a clip.
type CacheFormat string

// Cache container choices. MP3 output is always cached as an MP3 passthrough
// regardless of this setting; it only selects the container for PCM output.
const (
	CacheNone CacheFormat = "none"
	CacheWAV  CacheFormat = "wav"
	CacheOgg  CacheFormat = "ogg"
)

// Valid reports whether c names a known cache container.
func (c CacheFormat) Valid() bool {
	switch c {
	case CacheNone, CacheWAV, CacheOgg:
		return true
	}
	return false
}
