package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/selahapp/selah/internal/audio"
	"github.com/selahapp/selah/internal/passage"
)

// State is the sequencer lifecycle state.
type State int

const (
	// StateIdle indicates no playback session is active.
	StateIdle State = iota
	// StateLoading indicates the audio engine is initializing. Never
	// re-entered once playing is reached.
	StateLoading
	// StatePlaying indicates a session is scheduling or playing audio.
	StatePlaying
	// StateError indicates the last session died on an unrecoverable
	// error (audio engine failure, not a per-verse fetch failure).
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Playback tuning.
const (
	// PrefetchDepth is the number of verses kept fetched ahead of the
	// one currently being scheduled.
	PrefetchDepth = 5

	// cleanupMargin absorbs rounding and scheduling jitter so the final
	// cleanup never races the last audible sample.
	cleanupMargin = 500 * time.Millisecond

	// restartDelay is the pause before a rate change restarts the
	// chapter from verse 1.
	restartDelay = 100 * time.Millisecond
)

// Fetcher fetches and decodes pronunciation audio for one verse.
type Fetcher func(ctx context.Context, verse passage.Verse) (*audio.Clip, error)

// Config wires a Sequencer.
type Config struct {
	// Context is the audio output engine. When nil, NewContext is
	// invoked on first play (init-on-first-use).
	Context audio.Context

	// NewContext creates the audio engine lazily. Defaults to the real
	// device.
	NewContext func() (audio.Context, error)

	// Fetch fetches one verse's audio. Required.
	Fetch Fetcher

	// OnVerse is called when a verse's scheduled start time arrives, with
	// the verse index. Optional.
	OnVerse func(index int)

	// OnStateChange is called on every state transition. Optional.
	OnStateChange func(State)
}

// Sequencer plays an entire chapter verse by verse, in order, keeping
// PrefetchDepth verses of audio fetched ahead so playback does not stall on
// synthesis latency. At most one session is active at a time; playing while
// active toggles to stop.
type Sequencer struct {
	fetch         Fetcher
	newContext    func() (audio.Context, error)
	onVerse       func(int)
	onStateChange func(State)

	mu      sync.Mutex
	actx    audio.Context
	state   State
	session *Session
	gen     uint64
	rate    float64
	verses  []passage.Verse
	playCtx context.Context
	lastErr error
}

// NewSequencer creates a chapter sequencer.
func NewSequencer(cfg Config) (*Sequencer, error) {
	if cfg.Fetch == nil {
		return nil, fmt.Errorf("player: Fetch is required")
	}
	newCtx := cfg.NewContext
	if newCtx == nil {
		newCtx = audio.Shared
	}
	return &Sequencer{
		fetch:         cfg.Fetch,
		newContext:    newCtx,
		onVerse:       cfg.OnVerse,
		onStateChange: cfg.OnStateChange,
		actx:          cfg.Context,
		state:         StateIdle,
		rate:          1.0,
	}, nil
}

// State returns the current lifecycle state.
func (q *Sequencer) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Err returns the error that moved the sequencer to StateError, if any.
func (q *Sequencer) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Rate returns the playback-rate multiplier.
func (q *Sequencer) Rate() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rate
}

// Play starts chapter playback, or stops the active session when one is
// already running (play/pause toggle). The returned session is nil when the
// call toggled a session off.
func (q *Sequencer) Play(ctx context.Context, verses []passage.Verse) (*Session, error) {
	q.mu.Lock()
	if q.state == StateLoading || q.state == StatePlaying {
		sess := q.session
		q.session = nil
		q.setStateLocked(StateIdle)
		q.mu.Unlock()
		if sess != nil {
			sess.Cancel()
		}
		return nil, nil
	}
	q.mu.Unlock()
	return q.start(ctx, verses)
}

// Stop cancels the active session, if any, and returns to idle.
func (q *Sequencer) Stop() {
	q.mu.Lock()
	sess := q.session
	q.session = nil
	if q.state == StateLoading || q.state == StatePlaying {
		q.setStateLocked(StateIdle)
	}
	q.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
}

// SetRate changes the playback-rate multiplier. An active session is
// cancelled and the same chapter restarts from verse 1 after a short delay;
// playback is not resumable from the interrupted verse.
func (q *Sequencer) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	q.mu.Lock()
	q.rate = rate
	active := q.state == StateLoading || q.state == StatePlaying
	verses := q.verses
	ctx := q.playCtx
	gen := q.gen
	q.mu.Unlock()

	if !active {
		return
	}
	q.Stop()
	time.AfterFunc(restartDelay, func() {
		q.mu.Lock()
		stale := q.gen != gen || q.state != StateIdle
		q.mu.Unlock()
		if stale {
			// A newer session started inside the restart window.
			return
		}
		if _, err := q.start(ctx, verses); err != nil {
			log.Error("Restart after rate change failed", "error", err)
		}
	})
}

// Close tears down the sequencer and the audio engine.
func (q *Sequencer) Close() error {
	q.Stop()
	q.mu.Lock()
	actx := q.actx
	q.actx = nil
	q.mu.Unlock()
	if actx != nil {
		return actx.Close()
	}
	return nil
}

func (q *Sequencer) start(ctx context.Context, verses []passage.Verse) (*Session, error) {
	if len(verses) == 0 {
		return nil, fmt.Errorf("player: no verses to play")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	q.setStateLocked(StateLoading)
	if q.actx == nil {
		q.mu.Unlock()
		created, err := q.newContext()
		q.mu.Lock()
		if err != nil {
			q.lastErr = err
			q.setStateLocked(StateError)
			q.mu.Unlock()
			return nil, fmt.Errorf("player: audio engine init: %w", err)
		}
		if q.actx == nil {
			q.actx = created
		} else {
			// Lost the init race; release the extra engine.
			defer func() { _ = created.Close() }()
		}
	}

	// Swap under the lock so a racing start can never leave a superseded
	// session scheduling audio.
	prev := q.session
	q.gen++
	sess := newSession(q.gen)
	q.session = sess
	q.verses = verses
	q.playCtx = ctx
	rate := q.rate
	actx := q.actx
	q.setStateLocked(StatePlaying)
	q.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	go q.run(ctx, sess, actx, verses, rate)
	return sess, nil
}

type fetchResult struct {
	clip *audio.Clip
	err  error
}

func (q *Sequencer) startFetch(ctx context.Context, verse passage.Verse, rate float64) chan fetchResult {
	ch := make(chan fetchResult, 1)
	go func() {
		clip, err := q.fetch(ctx, verse)
		if err == nil && rate != 1.0 {
			clip = audio.Resample(clip, rate)
		}
		ch <- fetchResult{clip: clip, err: err}
	}()
	return ch
}

// run schedules the whole chapter. Verse audio is scheduled strictly in
// verse order even when fetches complete out of order: the loop always
// awaits the i-th result before touching the (i+1)-th.
func (q *Sequencer) run(ctx context.Context, sess *Session, actx audio.Context, verses []passage.Verse, rate float64) {
	results := make([]chan fetchResult, len(verses))
	depth := PrefetchDepth
	if len(verses) < depth {
		depth = len(verses)
	}
	for i := 0; i < depth; i++ {
		results[i] = q.startFetch(ctx, verses[i], rate)
	}

	next := actx.Now()
	for i := range verses {
		if sess.Cancelled() {
			return
		}
		// Keep the sliding prefetch window full.
		if j := i + PrefetchDepth; j < len(verses) {
			results[j] = q.startFetch(ctx, verses[j], rate)
		}

		var res fetchResult
		select {
		case res = <-results[i]:
		case <-sess.Done():
			return
		}
		if res.err != nil {
			// A single verse failure never aborts the chapter: skip
			// it without delaying the timeline.
			log.Warn("Verse audio failed, skipping",
				"verse", verses[i].Number, "error", res.err)
			continue
		}
		if sess.Cancelled() {
			return
		}

		p, err := actx.NewPlayer(res.clip)
		if err != nil {
			q.fail(sess, fmt.Errorf("player: audio source: %w", err))
			return
		}
		if !sess.addPlayer(p) {
			_ = p.Close()
			return
		}

		// Never in the past, never overlapping the previous verse.
		startAt := next
		if now := actx.Now(); now > startAt {
			startAt = now
		}
		p.StartAt(startAt)
		sess.recordStart(ScheduledStart{Index: i, Offset: startAt, Duration: res.clip.Duration})
		next = startAt + res.clip.Duration

		idx := i
		sess.afterFunc(startAt-actx.Now(), func() {
			q.notifyVerse(sess, idx)
		})
	}

	remaining := next - actx.Now()
	if remaining < 0 {
		remaining = 0
	}
	sess.setCleanupAt(next + cleanupMargin)
	sess.afterFunc(remaining+cleanupMargin, func() {
		q.complete(sess)
	})
}

func (q *Sequencer) notifyVerse(sess *Session, index int) {
	q.mu.Lock()
	live := q.session == sess && !sess.Cancelled()
	cb := q.onVerse
	q.mu.Unlock()
	if live && cb != nil {
		cb(index)
	}
}

func (q *Sequencer) complete(sess *Session) {
	q.mu.Lock()
	if q.session != sess {
		q.mu.Unlock()
		return
	}
	q.session = nil
	q.setStateLocked(StateIdle)
	q.mu.Unlock()
	sess.Cancel()
}

func (q *Sequencer) fail(sess *Session, err error) {
	log.Error("Chapter playback failed", "error", err)
	q.mu.Lock()
	if q.session != sess {
		q.mu.Unlock()
		sess.Cancel()
		return
	}
	q.session = nil
	q.lastErr = err
	q.setStateLocked(StateError)
	q.mu.Unlock()
	sess.Cancel()
}

// setStateLocked updates state and fires the callback. Callers hold q.mu.
func (q *Sequencer) setStateLocked(s State) {
	if q.state == s {
		return
	}
	q.state = s
	if q.onStateChange != nil {
		go q.onStateChange(s)
	}
}
