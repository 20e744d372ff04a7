package audio

import (
	"fmt"
	"sync"
	"time"
)

// MockContext implements Context for tests. The clock is advanced manually
// and every scheduled start is recorded so tests can assert on the exact
// playback timeline without real audio hardware or real time.
type MockContext struct {
	mu      sync.Mutex
	now     time.Duration
	starts  []ScheduledStart
	players []*MockPlayer
	failNew error
	closed  bool
}

// ScheduledStart records one clip start scheduled on the mock clock.
type ScheduledStart struct {
	Offset   time.Duration
	Duration time.Duration
}

// NewMockContext creates a mock audio context with the clock at zero.
func NewMockContext() *MockContext {
	return &MockContext{}
}

// NewPlayer creates a mock player for the clip.
func (c *MockContext) NewPlayer(clip *Clip) (Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNew != nil {
		return nil, c.failNew
	}
	if c.closed {
		return nil, fmt.Errorf("mock audio context is closed")
	}
	p := &MockPlayer{ctx: c, clip: clip}
	c.players = append(c.players, p)
	return p, nil
}

// Now returns the mock clock position.
func (c *MockContext) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SampleRate returns the output sample rate.
func (c *MockContext) SampleRate() int { return SampleRate }

// ChannelCount returns the number of output channels.
func (c *MockContext) ChannelCount() int { return Channels }

// Close marks the context closed.
func (c *MockContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Advance moves the mock clock forward.
func (c *MockContext) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// SetNow sets the mock clock to an absolute position.
func (c *MockContext) SetNow(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}

// FailNewPlayer makes subsequent NewPlayer calls fail with err.
func (c *MockContext) FailNewPlayer(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNew = err
}

// ScheduledStarts returns every start scheduled so far, in order.
func (c *MockContext) ScheduledStarts() []ScheduledStart {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScheduledStart, len(c.starts))
	copy(out, c.starts)
	return out
}

// ActivePlayers returns the number of players not yet stopped.
func (c *MockContext) ActivePlayers() int {
	c.mu.Lock()
	players := make([]*MockPlayer, len(c.players))
	copy(players, c.players)
	c.mu.Unlock()

	n := 0
	for _, p := range players {
		if !p.isStopped() {
			n++
		}
	}
	return n
}

func (c *MockContext) recordStart(s ScheduledStart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = append(c.starts, s)
}

// MockPlayer is a Player whose playback is purely bookkeeping.
type MockPlayer struct {
	ctx     *MockContext
	clip    *Clip
	mu      sync.Mutex
	started bool
	startAt time.Duration
	stopped bool
}

func (p *MockPlayer) StartAt(offset time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.started {
		return
	}
	p.started = true
	p.startAt = offset
	p.ctx.recordStart(ScheduledStart{Offset: offset, Duration: p.clip.Duration})
}

func (p *MockPlayer) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *MockPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || !p.started {
		return false
	}
	now := p.ctx.Now()
	return now >= p.startAt && now < p.startAt+p.clip.Duration
}

func (p *MockPlayer) Close() error {
	p.Stop()
	return nil
}
