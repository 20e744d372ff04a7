package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/passage"
	"github.com/selahapp/selah/internal/player"
	"github.com/selahapp/selah/internal/tracker"
)

const (
	minRate  = 0.5
	maxRate  = 2.0
	rateStep = 0.25
)

// readerModel is the passage view: streamed translation, optional
// original-language interleave, playback state, and the word-study card.
type readerModel struct {
	common   *commonModel
	viewport viewport.Model
	spinner  spinner.Model

	book    bible.Book
	chapter int

	streaming bool
	text      string
	verses    []passage.Verse
	loadErr   error

	original      map[string]string
	originalOrder []string
	showOriginal  bool

	verseCursor int
	wordCursor  int

	playerState  player.State
	playingVerse int // index into originalOrder, -1 when not chapter playback
	rate         float64

	karaokeVerse int // verse cursor at the time enter was pressed
	karaokeWord  int

	study     string
	studyWord string
	studyErr  error
	studyOpen bool

	showHelp bool
	copied   bool
}

// readerBackMsg returns to the chapter grid.
type readerBackMsg struct{}

func newReaderModel(common *commonModel) readerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return readerModel{
		common:       common,
		spinner:      sp,
		rate:         1.0,
		playingVerse: -1,
		karaokeVerse: -1,
		karaokeWord:  -1,
	}
}

// open resets the reader for a chapter and starts the translation stream.
func (m *readerModel) open(book bible.Book, chapter int) tea.Cmd {
	a := m.common.app
	a.sequencer.Stop()
	a.versePl.Stop()
	a.setLanguage(book.Language)

	m.book = book
	m.chapter = chapter
	m.streaming = true
	m.text = ""
	m.verses = nil
	m.loadErr = nil
	m.original = nil
	m.originalOrder = nil
	m.verseCursor = 0
	m.wordCursor = 0
	m.playingVerse = -1
	m.karaokeVerse = -1
	m.karaokeWord = -1
	m.studyOpen = false

	m.setSize(m.common.width, m.common.height)
	m.setContent()
	return tea.Batch(
		streamPassageCmd(a, book, chapter),
		loadOriginalCmd(a, book, chapter),
		m.spinner.Tick,
	)
}

func (m *readerModel) setSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = max(1, height-4)
}

func (m readerModel) update(msg tea.Msg) (readerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case passageChunkMsg:
		return m.handleChunk(msg)

	case passageErrMsg:
		m.streaming = false
		m.loadErr = msg.err
		m.setContent()
		return m, nil

	case originalLoadedMsg:
		if msg.book != m.book.Name || msg.chapter != m.chapter {
			return m, nil
		}
		m.original = msg.verses
		m.originalOrder = passage.SortedVerseNumbers(msg.verses)
		m.setContent()
		return m, nil

	case wordStudyMsg:
		m.studyOpen = true
		m.studyWord = msg.word
		m.study = msg.rendered
		m.studyErr = msg.err
		return m, nil

	case verseStartedMsg:
		m.playingVerse = msg.index
		m.scrollToPlaying()
		m.setContent()
		return m, nil

	case playerStateMsg:
		m.playerState = msg.state
		if msg.state != player.StatePlaying && msg.state != player.StateLoading {
			m.playingVerse = -1
		}
		m.setContent()
		return m, nil

	case highlightMsg:
		m.karaokeWord = msg.index
		m.setContent()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m readerModel) handleChunk(msg passageChunkMsg) (readerModel, tea.Cmd) {
	switch {
	case msg.err != nil:
		m.streaming = false
		m.loadErr = msg.err
		m.setContent()
		return m, nil
	case msg.final:
		m.streaming = false
		m.verses = passage.ParseVerses(m.text)
		m.setContent()
		m.common.app.prefetchAdjacent(context.Background(), m.book, m.chapter)
		return m, nil
	default:
		m.text += msg.text
		m.verses = passage.ParseVerses(m.text)
		m.setContent()
		return m, nextChunkCmd(msg.ch)
	}
}

func (m readerModel) handleKey(msg tea.KeyMsg) (readerModel, tea.Cmd) {
	a := m.common.app
	m.copied = false

	if m.studyOpen {
		switch msg.String() {
		case "esc", "w", "q", "enter":
			m.studyOpen = false
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		a.sequencer.Stop()
		a.versePl.Stop()
		return m, func() tea.Msg { return readerBackMsg{} }

	case "j", "down":
		if m.verseCursor < len(m.verses)-1 {
			m.verseCursor++
			m.wordCursor = 0
			m.setContent()
		}
	case "k", "up":
		if m.verseCursor > 0 {
			m.verseCursor--
			m.wordCursor = 0
			m.setContent()
		}
	case "h", "left":
		if m.wordCursor > 0 {
			m.wordCursor--
			m.setContent()
		}
	case "l", "right":
		if m.wordCursor < len(m.cursorOriginalWords())-1 {
			m.wordCursor++
			m.setContent()
		}

	case "tab":
		m.showOriginal = !m.showOriginal
		m.setContent()

	case " ":
		if m.playerState == player.StatePlaying || m.playerState == player.StateLoading {
			a.sequencer.Stop()
			return m, nil
		}
		verses := m.originalVerses()
		if verses == nil {
			return m, nil
		}
		return m, playChapterCmd(a, verses)

	case "enter":
		verse, original, ok := m.cursorVerse()
		if !ok {
			return m, nil
		}
		m.karaokeVerse = m.verseCursor
		m.karaokeWord = -1
		return m, playVerseCmd(a, verse, original)

	case "w":
		words := m.cursorOriginalWords()
		if m.wordCursor >= len(words) {
			return m, nil
		}
		_, original, ok := m.cursorVerse()
		if !ok {
			return m, nil
		}
		return m, wordStudyCmd(a, words[m.wordCursor], m.book.Language, original, m.common.renderMarkdown)

	case "+", "=":
		return m, m.adjustRate(rateStep)
	case "-":
		return m, m.adjustRate(-rateStep)

	case "m":
		return m, toggleReadCmd(a, m.book.Name, m.chapter)

	case "c":
		if m.text != "" {
			// Copy using OSC 52 and the native system clipboard.
			termenv.Copy(m.text)
			_ = clipboard.WriteAll(m.text)
			m.copied = true
		}

	case "?":
		m.showHelp = !m.showHelp

	case "n":
		if book, chapter, ok := bible.Next(m.book, m.chapter); ok {
			return m, func() tea.Msg { return chapterSelectedMsg{book: book, chapter: chapter} }
		}
	case "p":
		if book, chapter, ok := bible.Previous(m.book, m.chapter); ok {
			return m, func() tea.Msg { return chapterSelectedMsg{book: book, chapter: chapter} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *readerModel) adjustRate(delta float64) tea.Cmd {
	rate := m.rate + delta
	if rate < minRate {
		rate = minRate
	}
	if rate > maxRate {
		rate = maxRate
	}
	if rate == m.rate {
		return nil
	}
	m.rate = rate
	m.common.app.sequencer.SetRate(rate)
	return nil
}

// originalVerses returns the chapter's original-language verses in verse
// order, nil until the original text has loaded.
func (m readerModel) originalVerses() []passage.Verse {
	if m.original == nil {
		return nil
	}
	verses := make([]passage.Verse, 0, len(m.originalOrder))
	for _, num := range m.originalOrder {
		verses = append(verses, passage.Verse{Number: num, Text: m.original[num]})
	}
	return verses
}

// cursorVerse returns the translated verse under the cursor and its
// original text.
func (m readerModel) cursorVerse() (passage.Verse, string, bool) {
	if m.verseCursor >= len(m.verses) {
		return passage.Verse{}, "", false
	}
	verse := m.verses[m.verseCursor]
	original := m.original[verse.Number]
	if original == "" {
		return passage.Verse{}, "", false
	}
	return verse, original, true
}

func (m readerModel) cursorOriginalWords() []string {
	_, original, ok := m.cursorVerse()
	if !ok {
		return nil
	}
	return strings.Fields(original)
}

// playingNumber is the verse number currently sounding during chapter
// playback, empty otherwise.
func (m readerModel) playingNumber() string {
	if m.playingVerse < 0 || m.playingVerse >= len(m.originalOrder) {
		return ""
	}
	return m.originalOrder[m.playingVerse]
}

func (m *readerModel) scrollToPlaying() {
	num := m.playingNumber()
	for i, v := range m.verses {
		if v.Number == num {
			m.verseCursor = i
			m.wordCursor = 0
			return
		}
	}
}

// highlightWord styles the index-th whitespace-separated word of text.
func highlightWord(text string, index int, style lipgloss.Style) string {
	if index < 0 {
		return text
	}
	words := strings.Fields(text)
	if index >= len(words) {
		return text
	}
	words[index] = style.Render(words[index])
	return strings.Join(words, " ")
}

func (m *readerModel) setContent() {
	if m.loadErr != nil {
		m.viewport.SetContent(errorStyle.Render(fmt.Sprintf("Could not load %s %d:\n\n%v",
			m.book.Name, m.chapter, m.loadErr)))
		return
	}

	playing := m.playingNumber()
	var b strings.Builder
	for i, verse := range m.verses {
		text := verse.Text
		if i == m.karaokeVerse {
			text = highlightWord(text, m.karaokeWord, karaokeStyle)
		}
		line := verseNumberStyle.Render(verse.Number+".") + " " + text
		if verse.Number == playing {
			line = activeVerseStyle.Render("▶ ") + line
		} else if i == m.verseCursor {
			line = selectedStyle.Render("│ ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")

		if m.showOriginal {
			original := m.original[verse.Number]
			if original != "" {
				if i == m.verseCursor {
					original = highlightWord(original, m.wordCursor, wordCursorStyle)
				}
				b.WriteString("  " + originalTextStyle.Render(original))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	if m.streaming {
		b.WriteString(m.spinner.View())
		b.WriteString(subtleStyle.Render(" translating…"))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func (m readerModel) statusLine(status tracker.Status) string {
	parts := []string{
		fmt.Sprintf("%s %d", m.book.Name, m.chapter),
		string(m.book.Language),
		fmt.Sprintf("%.2fx", m.rate),
	}
	if m.playerState == player.StatePlaying {
		parts = append(parts, "playing")
	} else if m.playerState == player.StateLoading {
		parts = append(parts, "loading audio")
	}
	if tracker.IsRead(status, m.book.Name, m.chapter) {
		parts = append(parts, "read ✓")
	}
	if m.copied {
		parts = append(parts, "copied")
	}
	line := strings.Join(parts, "  ·  ")
	if m.common.width > 0 {
		line = truncate.StringWithTail(line, uint(m.common.width), "…") //nolint:gosec
	}
	return statusBarStyle.Render(line)
}

func (m readerModel) view(status tracker.Status) string {
	if m.studyOpen {
		return m.studyView()
	}
	help := helpStyle.Render("?: help  space: play  esc: back")
	if m.showHelp {
		help = helpStyle.Render("space: play chapter  enter: play verse  j/k: verse  h/l: word  " +
			"tab: original  w: word study  +/-: rate  c: copy  m: read  n/p: chapter  esc: back")
	}
	return m.statusLine(status) + "\n" + m.viewport.View() + "\n" + help
}

func (m readerModel) studyView() string {
	title := titleStyle.Render(fmt.Sprintf("Word study: %s", m.studyWord))
	var body string
	if m.studyErr != nil {
		body = errorStyle.Render(fmt.Sprintf("Lookup failed: %v", m.studyErr))
	} else {
		body = m.study
	}
	return title + "\n\n" + body + "\n" + helpStyle.Render("esc: close")
}
