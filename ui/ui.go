// Package ui provides the main UI for the selah application.
package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/internal/tracker"
)

// NewProgram returns a new Tea program.
func NewProgram(cfg Config) *tea.Program {
	log.Debug("Starting selah", "book", cfg.Book, "chapter", cfg.Chapter)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg), opts...)
}

// state is the top-level application state.
type state int

const (
	stateAPIKey state = iota
	stateLoadingApp
	stateShowPicker
	stateShowGrid
	stateShowReader
)

func (s state) String() string {
	return map[state]string{
		stateAPIKey:     "prompting for API key",
		stateLoadingApp: "initializing services",
		stateShowPicker: "showing book picker",
		stateShowGrid:   "showing chapter grid",
		stateShowReader: "showing reader",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	app    *app
	width  int
	height int

	renderer *glamour.TermRenderer
}

// renderMarkdown renders a markdown card for display, falling back to the
// raw text if the renderer is unavailable.
func (c *commonModel) renderMarkdown(md string) string {
	if !c.cfg.GlamourEnabled {
		return md
	}
	if c.renderer == nil {
		width := int(c.cfg.GlamourMaxWidth)
		if width == 0 || width > c.width {
			width = c.width
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(c.cfg.GlamourStyle),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn("Could not create markdown renderer", "error", err)
			return md
		}
		c.renderer = r
	}
	out, err := c.renderer.Render(md)
	if err != nil {
		log.Warn("Could not render markdown", "error", err)
		return md
	}
	return out
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	keyInput textinput.Model
	keyErr   error

	// Sub-models
	picker pickerModel
	grid   gridModel
	reader readerModel

	status tracker.Status
}

func newModel(cfg Config) tea.Model {
	common := commonModel{cfg: cfg}

	ti := textinput.New()
	ti.Placeholder = "Gemini API key"
	ti.EchoMode = textinput.EchoPassword
	ti.Focus()

	m := model{
		common:   &common,
		state:    stateAPIKey,
		keyInput: ti,
		picker:   newPickerModel(&common),
		grid:     newGridModel(&common),
		reader:   newReaderModel(&common),
	}
	if cfg.APIKey != "" {
		m.state = stateLoadingApp
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.state == stateLoadingApp {
		return initAppCmd(m.common.cfg)
	}
	return textinput.Blink
}

// openInitial honors a book/chapter given on the command line.
func (m model) openInitial() (model, tea.Cmd) {
	cfg := m.common.cfg
	if cfg.Book == "" {
		m.state = stateShowPicker
		return m, nil
	}
	book, err := bible.Find(cfg.Book)
	if err != nil {
		log.Warn("Unknown book argument", "book", cfg.Book, "error", err)
		m.state = stateShowPicker
		return m, nil
	}
	m.grid.setBook(book)
	if cfg.Chapter < 1 || cfg.Chapter > book.Chapters {
		m.state = stateShowGrid
		return m, nil
	}
	m.state = stateShowReader
	return m, m.reader.open(book, cfg.Chapter)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.common.renderer = nil
		m.reader.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.common.app.close()
			return m, tea.Quit
		case "q":
			// Not while q might be input for the filter or the key prompt.
			if m.state == stateShowPicker && !m.picker.filter.Focused() {
				m.common.app.close()
				return m, tea.Quit
			}
		case "ctrl+z":
			return m, tea.Suspend
		}

	case errMsg:
		if m.state == stateLoadingApp || m.state == stateAPIKey {
			m.keyErr = msg.err
			m.state = stateAPIKey
			m.keyInput.Focus()
			return m, textinput.Blink
		}
		log.Error("Background command failed", "error", msg.err)
		return m, nil

	case appReadyMsg:
		m.common.app = msg.app
		cmds := []tea.Cmd{waitEvent(msg.app), loadStatusCmd(msg.app)}
		var cmd tea.Cmd
		m, cmd = m.openInitial()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case statusLoadedMsg:
		m.status = msg.status
		m.picker.setStatus(msg.status)
		m.grid.setStatus(msg.status)
		return m, nil

	case bookSelectedMsg:
		m.grid.setBook(msg.book)
		m.state = stateShowGrid
		return m, nil

	case chapterSelectedMsg:
		m.state = stateShowReader
		return m, m.reader.open(msg.book, msg.chapter)

	case readerBackMsg:
		m.state = stateShowGrid
		m.grid.setBook(m.reader.book)
		return m, nil

	case verseStartedMsg, playerStateMsg, highlightMsg:
		var cmd tea.Cmd
		m.reader, cmd = m.reader.update(msg)
		return m, tea.Batch(cmd, waitEvent(m.common.app))
	}

	switch m.state {
	case stateAPIKey:
		return m.updateAPIKey(msg)
	case stateLoadingApp:
		return m, nil
	case stateShowPicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.update(msg)
		return m, cmd
	case stateShowGrid:
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			m.state = stateShowPicker
			return m, nil
		}
		var cmd tea.Cmd
		m.grid, cmd = m.grid.update(msg)
		return m, cmd
	case stateShowReader:
		var cmd tea.Cmd
		m.reader, cmd = m.reader.update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateAPIKey(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return m, tea.Quit
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := m.keyInput.Value()
		if value == "" {
			return m, nil
		}
		cfg := m.common.cfg
		cfg.APIKey = value
		m.common.cfg = cfg
		m.keyErr = nil
		m.state = stateLoadingApp
		return m, initAppCmd(cfg)
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorStyle.Render("Fatal error: "+m.fatalErr.Error()) + "\n\nPress any key to exit."
	}

	switch m.state {
	case stateAPIKey:
		s := titleStyle.Render("Selah") + "\n\n" +
			"Enter your Gemini API key. It is kept for this session only\nand never written to disk.\n\n" +
			m.keyInput.View() + "\n"
		if m.keyErr != nil {
			s += "\n" + errorStyle.Render(m.keyErr.Error()) + "\n"
		}
		return s
	case stateLoadingApp:
		return subtleStyle.Render("Connecting…")
	case stateShowPicker:
		return m.picker.view()
	case stateShowGrid:
		return m.grid.view()
	case stateShowReader:
		return m.reader.view(m.status)
	}
	return ""
}
