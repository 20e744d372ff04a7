package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/selahapp/selah/internal/audio"
	"github.com/selahapp/selah/internal/gemini"
	"github.com/selahapp/selah/internal/passage"
)

// highlightTick is the update-loop interval for the highlight cursor.
const highlightTick = 33 * time.Millisecond

// AlignFunc requests word-level timing for a spoken verse. durationSeconds
// is the exact audible duration of the synthesized audio.
type AlignFunc func(ctx context.Context, originalText, translatedText string, durationSeconds float64) ([]gemini.AlignmentSegment, error)

// VerseConfig wires a VersePlayer.
type VerseConfig struct {
	// Context is the audio output engine; NewContext is used lazily when
	// nil. Both players share the process-wide engine by default.
	Context    audio.Context
	NewContext func() (audio.Context, error)

	// Fetch fetches one verse's audio. Required.
	Fetch Fetcher

	// Align requests the word alignment. Optional; without it playback
	// runs unhighlighted.
	Align AlignFunc

	// OnHighlight is called when the active highlight index changes
	// (-1 when no segment matches). Optional.
	OnHighlight func(index int)
}

// VersePlayer plays a single verse's pronunciation immediately, then
// asynchronously aligns words to playback time and drives a highlight
// cursor. Audio-first: the alignment request is issued only after the
// audible duration is known, and never delays first sound.
type VersePlayer struct {
	fetch       Fetcher
	align       AlignFunc
	newContext  func() (audio.Context, error)
	onHighlight func(int)

	mu        sync.Mutex
	actx      audio.Context
	gen       uint64
	session   *Session
	segments  []gemini.AlignmentSegment
	highlight int
}

// NewVersePlayer creates a single-verse player.
func NewVersePlayer(cfg VerseConfig) (*VersePlayer, error) {
	if cfg.Fetch == nil {
		return nil, fmt.Errorf("player: Fetch is required")
	}
	newCtx := cfg.NewContext
	if newCtx == nil {
		newCtx = audio.Shared
	}
	return &VersePlayer{
		fetch:       cfg.Fetch,
		align:       cfg.Align,
		newContext:  newCtx,
		onHighlight: cfg.OnHighlight,
		actx:        cfg.Context,
		highlight:   -1,
	}, nil
}

// Play starts verse playback, stopping any verse already playing. The
// verse text is the original-language text to speak; translatedText is the
// rendering the alignment maps playback time onto. The returned session is
// cancelled when playback ends or is superseded.
func (v *VersePlayer) Play(ctx context.Context, verse passage.Verse, translatedText string) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	v.mu.Lock()
	if v.actx == nil {
		v.mu.Unlock()
		created, err := v.newContext()
		if err != nil {
			return nil, fmt.Errorf("player: audio engine init: %w", err)
		}
		v.mu.Lock()
		if v.actx == nil {
			v.actx = created
		} else {
			// Lost the init race; release the extra engine.
			defer func() { _ = created.Close() }()
		}
	}
	// Swap under the lock so a concurrent Play can never orphan a live
	// session, then cancel whatever was superseded.
	prev := v.session
	v.gen++
	sess := newSession(v.gen)
	v.session = sess
	v.segments = nil
	v.highlight = -1
	actx := v.actx
	v.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	go v.run(ctx, sess, actx, verse, translatedText)
	return sess, nil
}

// Stop cancels the active verse session.
func (v *VersePlayer) Stop() {
	v.mu.Lock()
	sess := v.session
	v.session = nil
	v.segments = nil
	v.highlight = -1
	v.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
}

// HighlightIndex returns the active alignment segment index, or -1 when
// nothing is highlighted.
func (v *VersePlayer) HighlightIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.highlight
}

// Segments returns the alignment for the playing verse, nil until the
// alignment response arrives.
func (v *VersePlayer) Segments() []gemini.AlignmentSegment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.segments
}

func (v *VersePlayer) run(ctx context.Context, sess *Session, actx audio.Context, verse passage.Verse, translatedText string) {
	clip, err := v.fetch(ctx, verse)
	if err != nil {
		log.Warn("Verse audio failed", "verse", verse.Number, "error", err)
		v.end(sess)
		return
	}
	if sess.Cancelled() {
		return
	}

	p, err := actx.NewPlayer(clip)
	if err != nil {
		log.Error("Verse playback failed", "verse", verse.Number, "error", err)
		v.end(sess)
		return
	}
	if !sess.addPlayer(p) {
		_ = p.Close()
		return
	}

	start := actx.Now()
	p.StartAt(start)
	sess.recordStart(ScheduledStart{Index: 0, Offset: start, Duration: clip.Duration})
	sess.setCleanupAt(start + clip.Duration + cleanupMargin)
	sess.afterFunc(clip.Duration+cleanupMargin, func() {
		v.end(sess)
	})

	// Alignment needs the exact audible duration, so it is requested only
	// now that audio is already playing. Failure or a late reply degrades
	// to unhighlighted playback.
	if v.align == nil {
		return
	}
	segments, err := v.align(ctx, verse.Text, translatedText, clip.Duration.Seconds())
	if err != nil {
		log.Warn("Alignment failed, playing unhighlighted", "verse", verse.Number, "error", err)
		return
	}
	if sess.Cancelled() {
		return
	}

	v.mu.Lock()
	if v.session == sess {
		v.segments = segments
	}
	v.mu.Unlock()

	go v.highlightLoop(sess, actx, start, clip.Duration, segments)
}

// highlightLoop polls playback time and maps it to an alignment segment.
// It terminates itself once its captured session is superseded or playback
// has run past the clip.
func (v *VersePlayer) highlightLoop(sess *Session, actx audio.Context, start, duration time.Duration, segments []gemini.AlignmentSegment) {
	ticker := time.NewTicker(highlightTick)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
			elapsed := actx.Now() - start
			if elapsed > duration+cleanupMargin {
				v.setHighlight(sess, -1)
				return
			}
			v.setHighlight(sess, SegmentAt(segments, elapsed.Milliseconds()))
		}
	}
}

func (v *VersePlayer) setHighlight(sess *Session, index int) {
	v.mu.Lock()
	if v.session != sess || v.highlight == index {
		v.mu.Unlock()
		return
	}
	v.highlight = index
	cb := v.onHighlight
	v.mu.Unlock()
	if cb != nil {
		cb(index)
	}
}

func (v *VersePlayer) end(sess *Session) {
	v.mu.Lock()
	if v.session == sess {
		v.session = nil
		v.segments = nil
		v.highlight = -1
	}
	v.mu.Unlock()
	sess.Cancel()
}

// SegmentAt returns the index of the segment whose [start, end) interval
// contains the elapsed time in milliseconds, or -1 when none does. A
// malformed alignment degrades to no highlight rather than an error.
func SegmentAt(segments []gemini.AlignmentSegment, elapsedMS int64) int {
	for i, seg := range segments {
		if elapsedMS >= seg.StartTimeMS && elapsedMS < seg.EndTimeMS {
			return i
		}
	}
	return -1
}
