package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/selahapp/selah/internal/audio"
	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/passage"
	"github.com/selahapp/selah/internal/player"
)

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickerNavigation(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	p := newPickerModel(common)

	if p.matches[p.cursor].Name != "Genesis" {
		t.Errorf("Expected cursor on Genesis, got %s", p.matches[p.cursor].Name)
	}

	p, _ = p.update(keyMsg("j"))
	p, _ = p.update(keyMsg("j"))
	if p.matches[p.cursor].Name != "Leviticus" {
		t.Errorf("Expected cursor on Leviticus, got %s", p.matches[p.cursor].Name)
	}

	p, _ = p.update(keyMsg("k"))
	if p.matches[p.cursor].Name != "Exodus" {
		t.Errorf("Expected cursor on Exodus, got %s", p.matches[p.cursor].Name)
	}
}

func TestPickerFuzzyFilter(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	p := newPickerModel(common)

	p, _ = p.update(keyMsg("/"))
	if !p.filter.Focused() {
		t.Fatal("Expected filter focused after /")
	}
	for _, r := range "gen" {
		p, _ = p.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(p.matches) == 0 {
		t.Fatal("Expected matches for query 'gen'")
	}
	if p.matches[0].Name != "Genesis" {
		t.Errorf("Expected Genesis as best match, got %s", p.matches[0].Name)
	}

	p, _ = p.update(keyMsg("esc"))
	if len(p.matches) != len(bible.Books) {
		t.Errorf("Expected full list after clearing filter, got %d", len(p.matches))
	}
}

func TestPickerSelectEmitsBook(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	p := newPickerModel(common)

	p, cmd := p.update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("Expected a command from enter")
	}
	msg, ok := cmd().(bookSelectedMsg)
	if !ok {
		t.Fatalf("Expected bookSelectedMsg, got %T", cmd())
	}
	if msg.book.Name != "Genesis" {
		t.Errorf("Expected Genesis selected, got %s", msg.book.Name)
	}
}

func TestGridNavigationStaysInBounds(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	g := newGridModel(common)
	book, _ := bible.Find("Jude")
	g.setBook(book) // single chapter

	g, _ = g.update(keyMsg("l"))
	g, _ = g.update(keyMsg("j"))
	if g.chapter() != 1 {
		t.Errorf("Expected chapter 1 in a one-chapter book, got %d", g.chapter())
	}

	book, _ = bible.Find("Psalms")
	g.setBook(book)
	g, _ = g.update(keyMsg("j"))
	g, _ = g.update(keyMsg("l"))
	if g.chapter() != gridColumns+2 {
		t.Errorf("Expected chapter %d, got %d", gridColumns+2, g.chapter())
	}
}

func TestGridSelectEmitsChapter(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	g := newGridModel(common)
	book, _ := bible.Find("John")
	g.setBook(book)
	g, _ = g.update(keyMsg("l"))

	g, cmd := g.update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("Expected a command from enter")
	}
	msg, ok := cmd().(chapterSelectedMsg)
	if !ok {
		t.Fatalf("Expected chapterSelectedMsg, got %T", cmd())
	}
	if msg.book.Name != "John" || msg.chapter != 2 {
		t.Errorf("Expected John 2, got %s %d", msg.book.Name, msg.chapter)
	}
}

func TestHighlightWord(t *testing.T) {
	// Styling may be stripped without a TTY, so assert on the text shape.
	out := highlightWord("In the beginning", 1, karaokeStyle)
	if !strings.Contains(out, "the") || !strings.Contains(out, "beginning") {
		t.Errorf("Expected highlighted text to retain every word, got %q", out)
	}
	if len(strings.Fields(out)) != 3 {
		t.Errorf("Expected 3 words, got %q", out)
	}

	if got := highlightWord("In the beginning", -1, karaokeStyle); got != "In the beginning" {
		t.Errorf("Expected text unchanged for index -1, got %q", got)
	}
	if got := highlightWord("one two", 5, karaokeStyle); got != "one two" {
		t.Errorf("Expected text unchanged for out-of-range index, got %q", got)
	}
}

func TestReaderStreamAccumulates(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	r := newReaderModel(common)
	r.book, _ = bible.Find("Genesis")
	r.chapter = 1
	r.streaming = true
	r.setSize(80, 24)

	ch := make(chan passageChunkMsg, 1)
	r, _ = r.update(passageChunkMsg{ch: ch, text: "1. In the beginning God created"})
	r, _ = r.update(passageChunkMsg{ch: ch, text: " the heavens and the earth.\n2. Now the earth was formless.\n"})

	if len(r.verses) != 2 {
		t.Fatalf("Expected 2 parsed verses mid-stream, got %d", len(r.verses))
	}
	if r.verses[0].Number != "1" {
		t.Errorf("Expected verse 1 first, got %s", r.verses[0].Number)
	}
}

func newPlaybackTestApp(t *testing.T) (*app, *audio.MockContext) {
	t.Helper()
	mock := audio.NewMockContext()
	fetch := func(ctx context.Context, verse passage.Verse) (*audio.Clip, error) {
		return audio.DecodePCM(make([]byte, audio.SampleRate*audio.BytesPerFrame))
	}

	a := &app{events: make(chan tea.Msg, 32)}
	var err error
	a.sequencer, err = player.NewSequencer(player.Config{Context: mock, Fetch: fetch})
	if err != nil {
		t.Fatalf("NewSequencer failed: %v", err)
	}
	a.versePl, err = player.NewVersePlayer(player.VerseConfig{Context: mock, Fetch: fetch})
	if err != nil {
		t.Fatalf("NewVersePlayer failed: %v", err)
	}
	t.Cleanup(func() {
		a.sequencer.Stop()
		a.versePl.Stop()
	})
	return a, mock
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestReaderPlaybackStreamsAreExclusive(t *testing.T) {
	a, mock := newPlaybackTestApp(t)
	common := &commonModel{width: 80, height: 24, app: a}

	r := newReaderModel(common)
	r.book, _ = bible.Find("John")
	r.chapter = 1
	r.setSize(80, 24)
	r.text = "1. In the beginning was the Word.\n2. The Word was with God.\n"
	r.verses = passage.ParseVerses(r.text)
	r.original = map[string]string{
		"1": "Ἐν ἀρχῇ ἦν ὁ λόγος",
		"2": "καὶ ὁ λόγος ἦν πρὸς τὸν θεόν",
	}
	r.originalOrder = []string{"1", "2"}

	// Chapter first, then a verse: the chapter must fall silent.
	r, cmd := r.update(keyMsg(" "))
	if cmd == nil {
		t.Fatal("Expected chapter play command from space")
	}
	cmd()
	waitFor(t, "chapter playing", func() bool {
		return a.sequencer.State() == player.StatePlaying
	})

	r, cmd = r.update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("Expected verse play command from enter")
	}
	cmd()
	if got := a.sequencer.State(); got != player.StateIdle {
		t.Errorf("Expected chapter playback stopped by verse playback, got %v", got)
	}
	waitFor(t, "only the verse sounding", func() bool {
		return mock.ActivePlayers() == 1
	})

	// And back: starting the chapter silences the verse.
	r, cmd = r.update(keyMsg(" "))
	if cmd == nil {
		t.Fatal("Expected chapter play command from space")
	}
	cmd()
	waitFor(t, "only the chapter sounding", func() bool {
		return mock.ActivePlayers() == 2
	})
}

func TestReaderCopyPassage(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	r := newReaderModel(common)
	r.book, _ = bible.Find("Genesis")
	r.chapter = 1
	r.setSize(80, 24)
	r.text = "1. In the beginning God created the heavens and the earth.\n"
	r.verses = passage.ParseVerses(r.text)

	r, _ = r.update(keyMsg("c"))
	if !r.copied {
		t.Error("Expected copy to be recorded")
	}
	if !strings.Contains(r.statusLine(nil), "copied") {
		t.Error("Expected copied note in the status line")
	}

	r, _ = r.update(keyMsg("tab"))
	if r.copied {
		t.Error("Expected copied note cleared on the next key")
	}
}

func TestReaderPassageErrorReplacesBody(t *testing.T) {
	common := &commonModel{width: 80, height: 24}
	r := newReaderModel(common)
	r.book, _ = bible.Find("Genesis")
	r.chapter = 1
	r.setSize(80, 24)

	r, _ = r.update(passageErrMsg{err: errors.New("model unavailable")})
	if r.loadErr == nil {
		t.Fatal("Expected load error recorded")
	}
	if !strings.Contains(r.viewport.View(), "Could not load") {
		t.Error("Expected error message in reader body")
	}
}
