package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// The process has a single audio output device; oto permits one context
// per process, so every playback session shares it.
var (
	sharedOnce sync.Once
	sharedCtx  *OtoContext
	sharedErr  error
)

// Shared returns the process-wide audio context, initializing the device on
// first use.
func Shared() (Context, error) {
	sharedOnce.Do(func() {
		sharedCtx, sharedErr = NewOtoContext()
	})
	if sharedErr != nil {
		return nil, sharedErr
	}
	return sharedCtx, nil
}

// OtoContext implements Context using real audio hardware via oto.
type OtoContext struct {
	context *oto.Context
	start   time.Time
	mu      sync.Mutex
	ready   bool
}

// NewOtoContext initializes the audio device and waits for it to become
// ready. Initialization failure is fatal to the playback session that
// requested it, never to the application.
func NewOtoContext() (*OtoContext, error) {
	options := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	log.Debug("Initializing audio context",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount)

	context, readyChan, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}

	select {
	case <-readyChan:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("audio context initialization timeout")
	}

	return &OtoContext{
		context: context,
		start:   time.Now(),
		ready:   true,
	}, nil
}

// NewPlayer creates a player for the clip.
func (c *OtoContext) NewPlayer(clip *Clip) (Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil, fmt.Errorf("audio context is closed")
	}
	return &otoPlayer{
		ctx:    c,
		player: c.context.NewPlayer(bytes.NewReader(clip.PCM)),
	}, nil
}

// Now returns elapsed time on the audio clock.
func (c *OtoContext) Now() time.Duration {
	return time.Since(c.start)
}

// SampleRate returns the output sample rate.
func (c *OtoContext) SampleRate() int { return SampleRate }

// ChannelCount returns the number of output channels.
func (c *OtoContext) ChannelCount() int { return Channels }

// Close marks the context unusable. oto v3 contexts have no Close; the
// device handle is released when the process exits.
func (c *OtoContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	return nil
}

// otoPlayer schedules a single oto player on the shared audio clock.
type otoPlayer struct {
	ctx     *OtoContext
	player  *oto.Player
	timer   *time.Timer
	mu      sync.Mutex
	stopped bool
}

func (p *otoPlayer) StartAt(offset time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	delay := offset - p.ctx.Now()
	if delay <= 0 {
		p.player.Play()
		return
	}
	p.timer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.stopped {
			p.player.Play()
		}
	})
}

func (p *otoPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.player.Pause()
}

func (p *otoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.stopped && p.player.IsPlaying()
}

func (p *otoPlayer) Close() error {
	p.Stop()
	return p.player.Close()
}
