package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/tracker"
)

const gridColumns = 10

// gridModel is the chapter selection view for one book. Chapters marked
// read in the tracker carry a check mark.
type gridModel struct {
	common *commonModel

	book   bible.Book
	cursor int
	status tracker.Status
}

func newGridModel(common *commonModel) gridModel {
	return gridModel{common: common}
}

// chapterSelectedMsg reports the chapter chosen in the grid.
type chapterSelectedMsg struct {
	book    bible.Book
	chapter int
}

func (m *gridModel) setBook(book bible.Book) {
	m.book = book
	if m.cursor >= book.Chapters {
		m.cursor = 0
	}
}

func (m *gridModel) setStatus(status tracker.Status) {
	m.status = status
}

func (m gridModel) chapter() int { return m.cursor + 1 }

func (m gridModel) update(msg tea.Msg) (gridModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}
	case "l", "right":
		if m.cursor < m.book.Chapters-1 {
			m.cursor++
		}
	case "j", "down":
		if m.cursor+gridColumns < m.book.Chapters {
			m.cursor += gridColumns
		}
	case "k", "up":
		if m.cursor-gridColumns >= 0 {
			m.cursor -= gridColumns
		}
	case "m":
		book, chapter := m.book.Name, m.chapter()
		return m, toggleReadCmd(m.common.app, book, chapter)
	case "enter":
		book, chapter := m.book, m.chapter()
		return m, func() tea.Msg { return chapterSelectedMsg{book: book, chapter: chapter} }
	}
	return m, nil
}

func (m gridModel) view() string {
	var b strings.Builder
	title := fmt.Sprintf("%s  %s", m.book.Name,
		subtleStyle.Render(string(m.book.Language)))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	for i := 0; i < m.book.Chapters; i++ {
		cell := fmt.Sprintf("%3d", i+1)
		if tracker.IsRead(m.status, m.book.Name, i+1) {
			cell = readMarkStyle.Render(cell) + readMarkStyle.Render("✓")
		} else {
			cell += " "
		}
		if i == m.cursor {
			cell = selectedStyle.Render(fmt.Sprintf("[%s]", cell))
		} else {
			cell = fmt.Sprintf(" %s ", cell)
		}
		b.WriteString(cell)
		if (i+1)%gridColumns == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: read  m: toggle read  esc: books"))
	return b.String()
}
