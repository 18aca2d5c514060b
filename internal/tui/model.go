// Package tui implements an optional full-screen progress view for a single
// fetch, built on bubbletea/bubbles/lipgloss in the style of the teacher's
// internal/tui package, trimmed from a multi-download dashboard down to the
// one-artifact-per-run shape this tool needs.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	fwprogress "github.com/fwpull/fwpull/internal/progress"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// EventMsg adapts a progress.Event into a bubbletea message.
type EventMsg fwprogress.Event

// Model is the root bubbletea model for a single fetch's progress view.
type Model struct {
	title   string
	bar     progress.Model
	events  <-chan EventMsg
	last    fwprogress.Event
	done    bool
	err     error
	started time.Time
}

// New builds a Model that reads progress events from ch until it's closed.
func New(title string, ch <-chan EventMsg) Model {
	return Model{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient()),
		events:  ch,
		started: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(ch <-chan EventMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
	case EventMsg:
		m.last = fwprogress.Event(msg)
		if m.last.Err != nil {
			m.err = m.last.Err
			return m, tea.Quit
		}
		if m.last.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("fetch failed: %v\n", m.err))
	}

	var pct float64
	if m.last.Total > 0 {
		pct = float64(m.last.Downloaded) / float64(m.last.Total)
	}

	status := fmt.Sprintf("%s / %s  %s/s  elapsed %s",
		humanize.Bytes(uint64(m.last.Downloaded)),
		humanize.Bytes(uint64(m.last.Total)),
		humanize.Bytes(uint64(m.last.Speed)),
		time.Since(m.started).Round(time.Second))

	body := titleStyle.Render(m.title) + "\n\n" + m.bar.ViewAs(pct) + "\n" + status + "\n"
	if m.done {
		body += "\n" + doneStyle.Render("done")
	}
	return body
}
