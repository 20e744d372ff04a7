package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/selahapp/selah/internal/audio"
	"github.com/selahapp/selah/internal/passage"
)

func clipOf(t *testing.T, d time.Duration) *audio.Clip {
	t.Helper()
	frames := int(d * audio.SampleRate / time.Second)
	clip, err := audio.DecodePCM(make([]byte, frames*audio.BytesPerFrame))
	if err != nil {
		t.Fatalf("clipOf: %v", err)
	}
	return clip
}

// durationFetcher resolves each verse to a clip of the configured duration.
// Per-verse delays and failures are keyed by verse number.
type durationFetcher struct {
	durations map[string]time.Duration
	delays    map[string]time.Duration
	failures  map[string]error
	blocked   map[string]chan struct{}
}

func (f *durationFetcher) fetch(t *testing.T) Fetcher {
	return func(ctx context.Context, verse passage.Verse) (*audio.Clip, error) {
		if ch, ok := f.blocked[verse.Number]; ok {
			<-ch
		}
		if d, ok := f.delays[verse.Number]; ok {
			time.Sleep(d)
		}
		if err, ok := f.failures[verse.Number]; ok {
			return nil, err
		}
		return clipOf(t, f.durations[verse.Number]), nil
	}
}

func verses(texts ...string) []passage.Verse {
	return passage.ParseVerses(joinLines(texts))
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func waitStarts(t *testing.T, sess *Session, n int) []ScheduledStart {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if starts := sess.Starts(); len(starts) >= n {
			return starts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d scheduled starts, have %d", n, len(sess.Starts()))
	return nil
}

func waitState(t *testing.T, q *Sequencer, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %v, have %v", want, q.State())
}

func newTestSequencer(t *testing.T, mock *audio.MockContext, fetch Fetcher) *Sequencer {
	t.Helper()
	q, err := NewSequencer(Config{Context: mock, Fetch: fetch})
	if err != nil {
		t.Fatalf("NewSequencer failed: %v", err)
	}
	return q
}

func TestSequencer_SchedulesInOrderGapless(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{durations: map[string]time.Duration{
		"1": time.Second,
		"2": 1500 * time.Millisecond,
	}}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses("1. Hello", "2. World"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	starts := waitStarts(t, sess, 2)
	if starts[0].Offset != 0 {
		t.Errorf("Expected verse 1 at t=0, got %v", starts[0].Offset)
	}
	if starts[1].Offset != time.Second {
		t.Errorf("Expected verse 2 at t=1s, got %v", starts[1].Offset)
	}

	cleanup, ok := sess.CleanupAt()
	deadline := time.Now().Add(time.Second)
	for !ok && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		cleanup, ok = sess.CleanupAt()
	}
	if !ok {
		t.Fatal("Cleanup never scheduled")
	}
	if cleanup != 3*time.Second {
		t.Errorf("Expected cleanup at t=3s (2.5s + 500ms margin), got %v", cleanup)
	}
}

func TestSequencer_StartsStrictlyIncreasingNonOverlapping(t *testing.T) {
	mock := audio.NewMockContext()
	durations := map[string]time.Duration{}
	lines := []string{}
	nums := []string{"1", "2", "3", "4", "5", "6", "7"}
	for i, n := range nums {
		durations[n] = time.Duration(100+i*37) * time.Millisecond
		lines = append(lines, n+". Verse "+n)
	}
	f := &durationFetcher{durations: durations}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses(lines...))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	starts := waitStarts(t, sess, len(nums))
	if len(starts) != len(nums) {
		t.Fatalf("Expected %d starts, got %d", len(nums), len(starts))
	}
	for i := 1; i < len(starts); i++ {
		prevEnd := starts[i-1].Offset + starts[i-1].Duration
		if starts[i].Offset < prevEnd {
			t.Errorf("Verse %d overlaps previous: starts %v, previous ends %v",
				i+1, starts[i].Offset, prevEnd)
		}
		if starts[i].Offset <= starts[i-1].Offset {
			t.Errorf("Start times not strictly increasing at index %d", i)
		}
	}
}

func TestSequencer_OutOfOrderFetchesPlayInOrder(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{
		durations: map[string]time.Duration{
			"1": 500 * time.Millisecond,
			"2": 500 * time.Millisecond,
			"3": 500 * time.Millisecond,
		},
		// Verse 1 resolves last even though it is scheduled first.
		delays: map[string]time.Duration{"1": 80 * time.Millisecond},
	}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses("1. a", "2. b", "3. c"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	starts := waitStarts(t, sess, 3)
	for i, s := range starts {
		if s.Index != i {
			t.Errorf("Expected scheduling order 0,1,2; got index %d at position %d", s.Index, i)
		}
	}
}

func TestSequencer_CancelStopsScheduling(t *testing.T) {
	mock := audio.NewMockContext()
	release := make(chan struct{})
	f := &durationFetcher{
		durations: map[string]time.Duration{
			"1": time.Second,
			"2": time.Second,
			"3": time.Second,
		},
		blocked: map[string]chan struct{}{"2": release},
	}
	q := newTestSequencer(t, mock, f.fetch(t))

	sess, err := q.Play(context.Background(), verses("1. a", "2. b", "3. c"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitStarts(t, sess, 1)

	q.Stop()
	close(release)
	time.Sleep(50 * time.Millisecond)

	if starts := sess.Starts(); len(starts) != 1 {
		t.Errorf("Expected no further scheduling after cancel, got %d starts", len(starts))
	}
	if got := q.State(); got != StateIdle {
		t.Errorf("Expected idle after cancel, got %v", got)
	}
	if n := mock.ActivePlayers(); n != 0 {
		t.Errorf("Expected all audio sources stopped, got %d active", n)
	}
}

func TestSequencer_SingleFailureSkipsVerse(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{
		durations: map[string]time.Duration{
			"1": time.Second,
			"3": time.Second,
		},
		failures: map[string]error{"2": errors.New("synthesis failed")},
	}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses("1. a", "2. b", "3. c"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	starts := waitStarts(t, sess, 2)
	if starts[0].Index != 0 || starts[1].Index != 2 {
		t.Errorf("Expected verses 0 and 2 scheduled, got %+v", starts)
	}
	// The skipped verse must not delay the timeline.
	if starts[1].Offset != time.Second {
		t.Errorf("Expected verse 3 at t=1s (no gap for skipped verse), got %v", starts[1].Offset)
	}
}

func TestSequencer_PlayTogglesToStop(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{durations: map[string]time.Duration{"1": time.Second}}
	q := newTestSequencer(t, mock, f.fetch(t))

	sess, err := q.Play(context.Background(), verses("1. a"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitStarts(t, sess, 1)

	toggled, err := q.Play(context.Background(), verses("1. a"))
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if toggled != nil {
		t.Error("Expected toggle to return nil session")
	}
	if !sess.Cancelled() {
		t.Error("Expected first session cancelled by toggle")
	}
	if got := q.State(); got != StateIdle {
		t.Errorf("Expected idle after toggle, got %v", got)
	}
}

func TestSequencer_RateScalesDurations(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{durations: map[string]time.Duration{
		"1": time.Second,
		"2": time.Second,
	}}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	q.SetRate(2.0)
	sess, err := q.Play(context.Background(), verses("1. a", "2. b"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	starts := waitStarts(t, sess, 2)
	// Rate 2.0 halves each clip; verse 2 starts at ~0.5s.
	if starts[1].Offset < 490*time.Millisecond || starts[1].Offset > 510*time.Millisecond {
		t.Errorf("Expected verse 2 at ~0.5s under rate 2.0, got %v", starts[1].Offset)
	}
}

func TestSequencer_RateChangeRestartsFromVerseOne(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{
		durations: map[string]time.Duration{"1": time.Second, "2": time.Second},
		delays:    map[string]time.Duration{"2": 30 * time.Millisecond},
	}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses("1. a", "2. b"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitStarts(t, sess, 1)

	q.SetRate(1.5)
	if !sess.Cancelled() {
		t.Error("Expected rate change to cancel the active session")
	}

	// Restart happens after a short fixed delay, from verse 1.
	waitState(t, q, StatePlaying)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.ScheduledStarts()) >= 3 { // 1 old + 2 new
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	all := mock.ScheduledStarts()
	if len(all) < 3 {
		t.Fatalf("Expected restart to schedule both verses again, got %d total starts", len(all))
	}
}

func TestSequencer_PlayDuringRateRestartWindowWins(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{durations: map[string]time.Duration{
		"1": time.Second,
		"2": time.Second,
	}}
	q := newTestSequencer(t, mock, f.fetch(t))
	defer q.Stop()

	sess, err := q.Play(context.Background(), verses("1. a"))
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitStarts(t, sess, 1)

	// A user play lands inside the restart window; the pending restart
	// must yield rather than install a second session over it.
	q.SetRate(1.5)
	sess2, err := q.Play(context.Background(), verses("1. a", "2. b"))
	if err != nil {
		t.Fatalf("Play inside restart window failed: %v", err)
	}
	if sess2 == nil {
		t.Fatal("Expected a fresh session, got toggle-off")
	}

	waitStarts(t, sess2, 2)
	time.Sleep(restartDelay + 100*time.Millisecond)

	if sess2.Cancelled() {
		t.Error("Expected the user-started session to survive the stale restart")
	}
	if got := q.State(); got != StatePlaying {
		t.Errorf("Expected playing, got %v", got)
	}
	// First session scheduled 1 verse, the second 2; a stale restart
	// would add more.
	if got := len(mock.ScheduledStarts()); got != 3 {
		t.Errorf("Expected 3 scheduled starts total, got %d", got)
	}
}

func TestSequencer_NaturalCompletionReportsIdle(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{durations: map[string]time.Duration{
		"1": 10 * time.Millisecond,
		"2": 10 * time.Millisecond,
	}}
	q := newTestSequencer(t, mock, f.fetch(t))

	if _, err := q.Play(context.Background(), verses("1. a", "2. b")); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	// Cleanup fires (total + 500ms margin) after the last verse.
	waitState(t, q, StateIdle)
}

func TestSequencer_EmptyChapter(t *testing.T) {
	mock := audio.NewMockContext()
	f := &durationFetcher{}
	q := newTestSequencer(t, mock, f.fetch(t))

	if _, err := q.Play(context.Background(), nil); err == nil {
		t.Error("Expected error for empty verse list")
	}
}

func TestSequencer_AudioInitFailureIsError(t *testing.T) {
	f := &durationFetcher{durations: map[string]time.Duration{"1": time.Second}}
	q, err := NewSequencer(Config{
		Fetch: f.fetch(t),
		NewContext: func() (audio.Context, error) {
			return nil, errors.New("no audio device")
		},
	})
	if err != nil {
		t.Fatalf("NewSequencer failed: %v", err)
	}

	if _, err := q.Play(context.Background(), verses("1. a")); err == nil {
		t.Error("Expected error when audio engine init fails")
	}
	if got := q.State(); got != StateError {
		t.Errorf("Expected error state, got %v", got)
	}
	if q.Err() == nil {
		t.Error("Expected Err() to report the init failure")
	}
}
