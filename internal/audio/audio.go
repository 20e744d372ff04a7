// Package audio provides PCM decoding and playback primitives for
// synthesized pronunciation audio.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Audio format constants. The speech service returns raw signed 16-bit
// little-endian PCM at 24kHz mono.
const (
	// SampleRate is the audio sample rate in Hz.
	SampleRate = 24000
	// Channels is the number of audio channels (1 = mono).
	Channels = 1
	// BitDepth is the bit depth per sample.
	BitDepth = 16
	// BytesPerFrame is the number of bytes per sample frame.
	BytesPerFrame = BitDepth / 8 * Channels
)

// ErrEmptyAudio is returned when a payload contains no samples.
var ErrEmptyAudio = errors.New("audio: empty payload")

// Clip is a decoded PCM buffer with its playback duration.
type Clip struct {
	PCM      []byte
	Duration time.Duration
}

// DecodePCM validates raw PCM bytes and wraps them in a Clip.
// The byte length must be a whole multiple of the sample frame size.
func DecodePCM(raw []byte) (*Clip, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}
	if len(raw)%BytesPerFrame != 0 {
		return nil, fmt.Errorf("audio: PCM length %d is not aligned to %d-byte frames", len(raw), BytesPerFrame)
	}
	return &Clip{
		PCM:      raw,
		Duration: PCMDuration(len(raw)),
	}, nil
}

// DecodeBase64 decodes a base64 payload into a Clip.
func DecodeBase64(payload string) (*Clip, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("audio: invalid base64 payload: %w", err)
	}
	return DecodePCM(raw)
}

// PCMDuration returns the playback duration of dataLen bytes of PCM.
func PCMDuration(dataLen int) time.Duration {
	frames := dataLen / BytesPerFrame
	return time.Duration(frames) * time.Second / SampleRate
}
