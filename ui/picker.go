package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/tracker"
)

// pickerModel is the book selection view: the full canon, narrowed by a
// fuzzy filter.
type pickerModel struct {
	common *commonModel

	filter  textinput.Model
	matches []bible.Book
	cursor  int
	status  tracker.Status
}

func newPickerModel(common *commonModel) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Filter books"
	ti.Prompt = "/ "
	return pickerModel{
		common:  common,
		filter:  ti,
		matches: bible.Books,
	}
}

// bookSelectedMsg reports the book chosen in the picker.
type bookSelectedMsg struct{ book bible.Book }

func (m *pickerModel) setStatus(status tracker.Status) {
	m.status = status
}

// applyFilter narrows the book list with the same fuzzy matcher used for
// free-form book lookup.
func (m *pickerModel) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		m.matches = bible.Books
	} else {
		names := make([]string, len(bible.Books))
		for i, b := range bible.Books {
			names[i] = b.Name
		}
		results := fuzzy.Find(query, names)
		matches := make([]bible.Book, 0, len(results))
		for _, r := range results {
			matches = append(matches, bible.Books[r.Index])
		}
		m.matches = matches
	}
	if m.cursor >= len(m.matches) {
		m.cursor = max(0, len(m.matches)-1)
	}
}

func (m pickerModel) update(msg tea.Msg) (pickerModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.filter.Focused() {
			switch key.String() {
			case "esc":
				m.filter.Blur()
				m.filter.SetValue("")
				m.applyFilter()
				return m, nil
			case "enter":
				m.filter.Blur()
				return m, nil
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
		}

		switch key.String() {
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		case "j", "down":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = max(0, len(m.matches)-1)
		case "enter":
			if m.cursor < len(m.matches) {
				book := m.matches[m.cursor]
				return m, func() tea.Msg { return bookSelectedMsg{book: book} }
			}
		}
	}
	return m, nil
}

func (m pickerModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Selah"))
	b.WriteString("\n\n")
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	visible := m.common.height - 8
	if visible < 1 {
		visible = len(m.matches)
	}
	top := 0
	if m.cursor >= visible {
		top = m.cursor - visible + 1
	}

	for i := top; i < len(m.matches) && i < top+visible; i++ {
		book := m.matches[i]
		line := fmt.Sprintf("%-18s %s", book.Name,
			subtleStyle.Render(fmt.Sprintf("%d chapters", book.Chapters)))
		if done := len(m.status[book.Name]); done > 0 {
			line += readMarkStyle.Render(fmt.Sprintf("  %d/%d read", done, book.Chapters))
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: open  /: filter  q: quit"))
	return b.String()
}
