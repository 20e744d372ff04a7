package ui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/selahapp/selah/internal/audio"
	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/cache"
	"github.com/selahapp/selah/internal/gemini"
	"github.com/selahapp/selah/internal/passage"
	"github.com/selahapp/selah/internal/player"
	"github.com/selahapp/selah/internal/tracker"
)

// app bundles the services shared by every view. It is created once the
// API key is known.
type app struct {
	client    *gemini.Client
	passages  *passage.Service
	cache     *cache.Session
	tracker   *tracker.Tracker
	sequencer *player.Sequencer
	versePl   *player.VersePlayer
	voice     string

	// events carries playback callbacks from their goroutines into the
	// Bubble Tea update loop.
	events chan tea.Msg

	mu       sync.Mutex
	language string
}

// setLanguage records the original language of the open chapter, read by
// alignment requests issued from playback goroutines.
func (a *app) setLanguage(l bible.Language) {
	a.mu.Lock()
	a.language = string(l)
	a.mu.Unlock()
}

func (a *app) currentLanguage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	client, err := gemini.New(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	tr, err := tracker.Open(tracker.Options{Dir: cfg.DataDir})
	if err != nil {
		return nil, err
	}

	a := &app{
		client:  client,
		cache:   cache.NewSession(),
		tracker: tr,
		voice:   cfg.Voice,
		events:  make(chan tea.Msg, 32),
	}
	a.passages = passage.NewService(client, a.cache, "English")

	a.sequencer, err = player.NewSequencer(player.Config{
		Fetch: a.fetchVerseAudio,
		OnVerse: func(index int) {
			a.events <- verseStartedMsg{index: index}
		},
		OnStateChange: func(s player.State) {
			a.events <- playerStateMsg{state: s}
		},
	})
	if err != nil {
		tr.Close()
		return nil, err
	}

	a.versePl, err = player.NewVersePlayer(player.VerseConfig{
		Fetch: a.fetchVerseAudio,
		Align: a.alignVerse,
		OnHighlight: func(index int) {
			a.events <- highlightMsg{index: index}
		},
	})
	if err != nil {
		tr.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a == nil {
		return
	}
	a.sequencer.Close()
	a.versePl.Stop()
	if err := a.tracker.Close(); err != nil {
		log.Warn("Closing tracker", "error", err)
	}
}

func audioKey(verse passage.Verse) string {
	return fmt.Sprintf("audio:%s:%s", verse.Number, verse.Text)
}

// fetchVerseAudio synthesizes pronunciation audio for one verse, cached
// for the session so replays and rate restarts skip synthesis.
func (a *app) fetchVerseAudio(ctx context.Context, verse passage.Verse) (*audio.Clip, error) {
	pcm, err := a.cache.GetOrFetch(audioKey(verse), func() ([]byte, error) {
		return a.client.GenerateSpeech(ctx, verse.Text, a.voice)
	})
	if err != nil {
		return nil, err
	}
	return audio.DecodePCM(pcm)
}

func (a *app) alignVerse(ctx context.Context, originalText, translatedText string, durationSeconds float64) ([]gemini.AlignmentSegment, error) {
	return a.client.GenerateAlignment(ctx, originalText, translatedText, a.currentLanguage(), durationSeconds)
}

// prefetchAdjacent warms the cache for the chapters around the one just
// loaded. Best-effort: failures are logged inside the service.
func (a *app) prefetchAdjacent(ctx context.Context, book bible.Book, chapter int) {
	if next, c, ok := bible.Next(book, chapter); ok {
		go a.passages.Prefetch(ctx, next.Name, c, string(next.Language))
	}
	if prev, c, ok := bible.Previous(book, chapter); ok {
		go a.passages.Prefetch(ctx, prev.Name, c, string(prev.Language))
	}
}
