// Package display is the read-only timer surface: a large countdown for the
// current phase, the phase strip and the session agenda.
package display

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"madamis/backend/internal/client"
	"madamis/backend/internal/model"
	"madamis/backend/internal/timer"
	"madamis/backend/internal/ui/live"
	"madamis/backend/internal/ui/theme"
)

type Model struct {
	opts    Options
	styles  theme.Styles
	events  <-chan client.Event
	tracker *live.Tracker
	closed  bool
	width   int
	height  int
}

// New builds a display fed by events. now is the local clock; nil means
// time.Now.
func New(events <-chan client.Event, opts Options, now func() time.Time) Model {
	return Model{
		opts:    opts,
		styles:  theme.For(opts.Theme),
		events:  events,
		tracker: live.NewTracker(now),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(live.Wait(m.events), live.Tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case live.EventMsg:
		m.tracker.Observe(msg.Event)
		return m, live.Wait(m.events)
	case live.ClosedMsg:
		m.closed = true
	case live.TickMsg:
		return m, live.Tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	view, ok := m.tracker.View()
	if !ok {
		return m.styles.App.Render(m.styles.Muted.Render("waiting for timer…") + "\n" + m.connectionLine())
	}
	doc := m.tracker.Doc

	sections := make([]string, 0, 6)
	if m.opts.ShowTitle {
		sections = append(sections, m.styles.Title.Render(doc.Title))
	}
	sections = append(sections, m.phaseHeader(view))
	sections = append(sections, m.clock(view))
	sections = append(sections, m.styles.Muted.Render("total "+timer.FormatRemaining(view.TotalRemainingMs)+statusSuffix(view.Status)))
	if view.Next != nil {
		sections = append(sections, m.styles.Muted.Render("next: "+view.Next.Name+" ("+timer.FormatRemaining(view.Next.Seconds*1000)+")"))
	}
	if doc.ShowPhaseStrip && view.Count > 1 {
		sections = append(sections, m.phaseStrip(view))
	}
	if m.opts.ShowSchedule && len(doc.Agenda) > 0 {
		sections = append(sections, m.agenda(doc.Agenda))
	}
	if line := m.connectionLine(); line != "" {
		sections = append(sections, line)
	}

	body := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.width > 0 && m.height > 0 {
		body = lipgloss.Place(m.width-4, m.height-2, lipgloss.Center, lipgloss.Center, body)
	}
	return m.styles.App.Render(body)
}

func (m Model) phaseHeader(view timer.View) string {
	header := fmt.Sprintf("%d/%d  %s", view.Index+1, view.Count, view.Current.Name)
	if view.Current.Note != "" {
		header += "\n" + m.styles.Muted.Render(view.Current.Note)
	}
	return header
}

func (m Model) clock(view timer.View) string {
	text := timer.FormatRemaining(view.PhaseRemainingMs)
	style := m.styles.Clock
	if view.Status == model.StatusRunning && view.PhaseRemainingMs <= 60_000 {
		style = m.styles.Hot
	}

	width := int(m.opts.Scale)
	if width < 2 {
		return style.Render(text)
	}
	rendered := style.Render(bigText(text, width-1))
	if m.opts.Shadow {
		rendered = m.withShadow(rendered)
	}
	return rendered
}

// withShadow offsets a shaded copy one cell down and right.
func (m Model) withShadow(block string) string {
	lines := strings.Split(block, "\n")
	width := lipgloss.Width(block)
	for i := range lines {
		pad := width - lipgloss.Width(lines[i])
		if i == 0 {
			lines[i] += strings.Repeat(" ", pad+1)
			continue
		}
		lines[i] += strings.Repeat(" ", pad) + m.styles.Shadow.Render("░")
	}
	lines = append(lines, " "+m.styles.Shadow.Render(strings.Repeat("░", width)))
	return strings.Join(lines, "\n")
}

func (m Model) phaseStrip(view timer.View) string {
	cells := make([]string, 0, len(view.Phases))
	for i, phase := range view.Phases {
		label := fmt.Sprintf(" %s ", phase.Name)
		switch {
		case i < view.Index:
			cells = append(cells, m.styles.Done.Render(label))
		case i == view.Index:
			cells = append(cells, m.styles.Selected.Render(label))
		default:
			cells = append(cells, m.styles.Muted.Render(label))
		}
	}
	return m.styles.Pane.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

func (m Model) agenda(items []model.AgendaItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, m.styles.Muted.Render(item.At)+"  "+item.Label)
	}
	return m.styles.Pane.Render(strings.Join(lines, "\n"))
}

func (m Model) connectionLine() string {
	switch {
	case m.closed:
		return m.styles.Error.Render("subscription closed")
	case m.tracker.Err != nil:
		return m.styles.Error.Render("reconnecting…")
	default:
		return ""
	}
}

func statusSuffix(status string) string {
	switch status {
	case model.StatusPaused:
		return "  · paused"
	case model.StatusIdle:
		return "  · idle"
	default:
		return ""
	}
}
