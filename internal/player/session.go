// Package player implements chapter and single-verse pronunciation
// playback: prefetched, gapless scheduling over the audio clock, with
// cooperative cancellation and word-highlight synchronization.
package player

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/selahapp/selah/internal/audio"
)

// ScheduledStart records one verse start placed on the audio clock.
type ScheduledStart struct {
	Index    int
	Offset   time.Duration
	Duration time.Duration
}

// Session is the live state of one playback invocation. It owns every audio
// source and timer the run created; Cancel releases all of them and is the
// single exit path shared by stop, rate change, teardown, and natural
// completion. Stale callbacks compare their captured session against the
// live one before acting.
type Session struct {
	gen uint64

	cancelled atomic.Bool
	done      chan struct{}

	mu         sync.Mutex
	players    []audio.Player
	timers     []*time.Timer
	starts     []ScheduledStart
	cleanupAt  time.Duration
	hasCleanup bool
}

func newSession(gen uint64) *Session {
	return &Session{
		gen:  gen,
		done: make(chan struct{}),
	}
}

// Cancel stops every scheduled audio source, fires pending timers' stop,
// and marks the session dead. Idempotent. A fetch already in flight is
// allowed to complete; its result is discarded.
func (s *Session) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	close(s.done)

	s.mu.Lock()
	players := s.players
	timers := s.timers
	s.players = nil
	s.timers = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, p := range players {
		p.Stop()
		_ = p.Close()
	}
}

// Cancelled reports whether the session has been torn down.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Done is closed when the session is cancelled or completes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Starts returns the verse starts scheduled so far, in scheduling order.
func (s *Session) Starts() []ScheduledStart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledStart, len(s.starts))
	copy(out, s.starts)
	return out
}

// CleanupAt returns the audio-clock offset of the final cleanup, and
// whether it has been scheduled yet.
func (s *Session) CleanupAt() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupAt, s.hasCleanup
}

func (s *Session) addPlayer(p audio.Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return false
	}
	s.players = append(s.players, p)
	return true
}

func (s *Session) recordStart(start ScheduledStart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, start)
}

func (s *Session) setCleanupAt(offset time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupAt = offset
	s.hasCleanup = true
}

// afterFunc registers a timer owned by the session. No-op once cancelled.
func (s *Session) afterFunc(d time.Duration, f func()) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return
	}
	s.timers = append(s.timers, time.AfterFunc(d, f))
}
