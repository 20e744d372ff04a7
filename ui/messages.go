package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/passage"
	"github.com/selahapp/selah/internal/player"
	"github.com/selahapp/selah/internal/tracker"
)

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// appReadyMsg delivers the initialized service bundle after the API key
// is accepted.
type appReadyMsg struct{ app *app }

// passageChunkMsg is one streamed chunk of the translated chapter.
// final marks the end of a clean stream; text is empty then.
type passageChunkMsg struct {
	ch    chan passageChunkMsg
	text  string
	final bool
	err   error
}

// passageErrMsg replaces the reader body (not a status line) per the
// passage error class.
type passageErrMsg struct{ err error }

// originalLoadedMsg delivers the original-language chapter text.
type originalLoadedMsg struct {
	book    string
	chapter int
	verses  map[string]string
}

// wordStudyMsg delivers a word study result or its inline error.
type wordStudyMsg struct {
	word     string
	rendered string
	err      error
}

// statusLoadedMsg delivers a fresh reading-tracker snapshot.
type statusLoadedMsg struct{ status tracker.Status }

// Playback events, forwarded from player callbacks via app.events.
type (
	verseStartedMsg struct{ index int }
	playerStateMsg  struct{ state player.State }
	highlightMsg    struct{ index int }
)

// waitEvent relays one playback event into the update loop. The handler
// re-issues it so the channel is always being drained.
func waitEvent(a *app) tea.Cmd {
	return func() tea.Msg {
		return <-a.events
	}
}

func initAppCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		a, err := newApp(context.Background(), cfg)
		if err != nil {
			return errMsg{err}
		}
		return appReadyMsg{app: a}
	}
}

// streamPassageCmd starts the translation stream and returns the first
// chunk; subsequent chunks arrive by re-reading the channel.
func streamPassageCmd(a *app, book bible.Book, chapter int) tea.Cmd {
	ch := make(chan passageChunkMsg, 8)
	go func() {
		defer close(ch)
		for chunk, err := range a.passages.StreamPassage(context.Background(), book.Name, chapter) {
			if err != nil {
				ch <- passageChunkMsg{err: err}
				return
			}
			ch <- passageChunkMsg{text: chunk}
		}
		ch <- passageChunkMsg{final: true}
	}()
	return nextChunkCmd(ch)
}

func nextChunkCmd(ch chan passageChunkMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		msg.ch = ch
		return msg
	}
}

func loadOriginalCmd(a *app, book bible.Book, chapter int) tea.Cmd {
	return func() tea.Msg {
		verses, err := a.passages.Original(context.Background(), book.Name, chapter, string(book.Language))
		if err != nil {
			return passageErrMsg{err}
		}
		return originalLoadedMsg{book: book.Name, chapter: chapter, verses: verses}
	}
}

func wordStudyCmd(a *app, word string, language bible.Language, verseContext string, render func(string) string) tea.Cmd {
	return func() tea.Msg {
		study, err := a.passages.Study(context.Background(), word, string(language), verseContext)
		if err != nil {
			return wordStudyMsg{word: word, err: err}
		}
		return wordStudyMsg{word: word, rendered: render(study.Markdown())}
	}
}

func loadStatusCmd(a *app) tea.Cmd {
	return func() tea.Msg {
		status, err := a.tracker.Snapshot()
		if err != nil {
			return errMsg{err}
		}
		return statusLoadedMsg{status: status}
	}
}

func toggleReadCmd(a *app, book string, chapter int) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.tracker.Toggle(book, chapter); err != nil {
			return errMsg{err}
		}
		status, err := a.tracker.Snapshot()
		if err != nil {
			return errMsg{err}
		}
		return statusLoadedMsg{status: status}
	}
}

// playChapterCmd toggles chapter playback over the original-language
// verses. At most one playback stream sounds at a time, so an active
// verse session is stopped first.
func playChapterCmd(a *app, verses []passage.Verse) tea.Cmd {
	return func() tea.Msg {
		a.versePl.Stop()
		if _, err := a.sequencer.Play(context.Background(), verses); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// playVerseCmd plays one verse's pronunciation, stopping an active
// chapter session first. The spoken text is the original-language verse;
// the translation is used for alignment.
func playVerseCmd(a *app, verse passage.Verse, originalText string) tea.Cmd {
	return func() tea.Msg {
		a.sequencer.Stop()
		spoken := passage.Verse{Number: verse.Number, Text: originalText}
		if _, err := a.versePl.Play(context.Background(), spoken, verse.Text); err != nil {
			return errMsg{err}
		}
		return nil
	}
}
