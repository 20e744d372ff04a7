package audio

import "time"

// Context is the audio output engine. There is one per process; the active
// playback session is its sole scheduler at any given time.
// Implementations: OtoContext (real hardware) and MockContext (tests).
type Context interface {
	// NewPlayer creates a player for a decoded clip.
	NewPlayer(clip *Clip) (Player, error)

	// Now returns the position on the audio clock, measured from context
	// initialization. Scheduled start offsets are relative to this clock.
	Now() time.Duration

	// SampleRate returns the output sample rate.
	SampleRate() int

	// ChannelCount returns the number of output channels.
	ChannelCount() int

	// Close releases the audio device.
	Close() error
}

// Player plays a single clip.
type Player interface {
	// StartAt schedules playback to begin when the audio clock reaches
	// the given offset. An offset at or before Now starts immediately.
	StartAt(offset time.Duration)

	// Stop halts playback and cancels a pending scheduled start.
	Stop()

	// IsPlaying reports whether the clip is currently audible.
	IsPlaying() bool

	// Close stops the player and releases its buffer.
	Close() error
}
