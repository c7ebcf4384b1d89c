// Package control is the owner's terminal surface: quick start/pause/reset/add
// triggers plus a staged phase editor that is only sent on save.
package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"madamis/backend/internal/client"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
	"madamis/backend/internal/ui/live"
	"madamis/backend/internal/ui/theme"
)

const commandTimeout = 10 * time.Second

// Commander sends a timer command for a session.
type Commander interface {
	Command(ctx context.Context, sessionID string, req timer.Request) (*realtime.Snapshot, error)
}

type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldName
	fieldMinutes
	fieldNote
)

var fieldLabels = map[field]string{
	fieldTitle:   "title",
	fieldName:    "name",
	fieldMinutes: "minutes",
	fieldNote:    "note",
}

type commandDoneMsg struct {
	action   timer.Action
	saving   bool
	revision int
	snapshot *realtime.Snapshot
	err      error
}

type Model struct {
	sessionID string
	commander Commander
	events    <-chan client.Event
	tracker   *live.Tracker
	draft     *timer.Draft
	styles    theme.Styles

	selected int
	editing  field
	input    string
	pending  int
	status   string
	statusOK bool
	closed   bool
}

func New(sessionID string, commander Commander, events <-chan client.Event, themeName string, now func() time.Time) Model {
	return Model{
		sessionID: sessionID,
		commander: commander,
		events:    events,
		tracker:   live.NewTracker(now),
		draft:     timer.NewDraft(),
		styles:    theme.For(themeName),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(live.Wait(m.events), live.Tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case live.EventMsg:
		if m.tracker.Observe(msg.Event) {
			m.adoptRemote()
		}
		return m, live.Wait(m.events)
	case live.ClosedMsg:
		m.closed = true
	case live.TickMsg:
		return m, live.Tick()
	case commandDoneMsg:
		m.finish(msg)
	case tea.KeyMsg:
		if m.editing != fieldNone {
			m.edit(msg)
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		return m, m.send(timer.Request{Command: timer.Start{}}, false)
	case "p":
		return m, m.send(timer.Request{Command: timer.Pause{}}, false)
	case "r":
		return m, m.send(timer.Request{Command: timer.Reset{}}, false)
	case "A":
		return m, m.send(timer.Request{Command: timer.Add{Seconds: timer.ExtendSeconds}}, false)
	case "+":
		return m, m.extendCurrent()
	case "ctrl+s":
		return m, m.save()
	case "a":
		m.selected = m.draft.AddPhase()
	case "x":
		if m.draft.RemovePhase(m.selected) {
			m.clampSelection()
		}
	case "K":
		if m.draft.MoveUp(m.selected) {
			m.selected--
		}
	case "J":
		if m.draft.MoveDown(m.selected) {
			m.selected++
		}
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.draft.Phases)-1 {
			m.selected++
		}
	case "t":
		m.beginEdit(fieldTitle, m.draft.Title)
	case "e":
		if phase, ok := m.selectedPhase(); ok {
			m.beginEdit(fieldName, phase.Name)
		}
	case "m":
		if phase, ok := m.selectedPhase(); ok {
			m.beginEdit(fieldMinutes, timer.MinutesText(phase.Seconds))
		}
	case "n":
		if phase, ok := m.selectedPhase(); ok {
			m.beginEdit(fieldNote, phase.Note)
		}
	}
	return m, nil
}

func (m *Model) beginEdit(f field, current string) {
	m.editing = f
	m.input = current
}

// edit applies every keystroke to the draft immediately.
func (m *Model) edit(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.editing = fieldNone
		m.input = ""
		return
	case tea.KeyBackspace:
		runes := []rune(m.input)
		if len(runes) == 0 {
			return
		}
		m.input = string(runes[:len(runes)-1])
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
	default:
		return
	}

	switch m.editing {
	case fieldTitle:
		m.draft.SetTitle(m.input)
	case fieldName:
		m.draft.SetPhaseName(m.selected, m.input)
	case fieldMinutes:
		m.draft.SetPhaseMinutes(m.selected, m.input)
	case fieldNote:
		m.draft.SetPhaseNote(m.selected, m.input)
	}
}

// extendCurrent adds five minutes to the phase the timer is in and saves the
// whole draft right away.
func (m *Model) extendCurrent() tea.Cmd {
	view, ok := m.tracker.View()
	if !ok {
		m.setStatus("no timer loaded yet", false)
		return nil
	}
	if !m.draft.ExtendPhase(*m.tracker.Doc, view.Index, timer.ExtendSeconds) {
		m.setStatus("current phase is not in the draft", false)
		return nil
	}
	return m.save()
}

func (m *Model) save() tea.Cmd {
	return m.send(timer.Request{Command: m.draft.ConfigCommand(), BaseVersion: m.draft.BaseVersion}, true)
}

func (m *Model) send(req timer.Request, saving bool) tea.Cmd {
	if m.commander == nil {
		return nil
	}
	m.pending++
	commander, sessionID, revision := m.commander, m.sessionID, m.draft.Revision()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		snapshot, err := commander.Command(ctx, sessionID, req)
		return commandDoneMsg{action: req.Command.Action(), saving: saving, revision: revision, snapshot: snapshot, err: err}
	}
}

func (m *Model) finish(msg commandDoneMsg) {
	if m.pending > 0 {
		m.pending--
	}
	if msg.err != nil {
		if latest, ok := client.ConflictSnapshot(msg.err); ok {
			m.tracker.Accept(*latest)
			if msg.saving {
				m.draft.BaseVersion = latest.Document.Version
			}
			m.setStatus(fmt.Sprintf("%s rejected: timer changed elsewhere (v%d), ctrl+s to overwrite", msg.action, latest.Document.Version), false)
			m.adoptRemote()
			return
		}
		m.setStatus(fmt.Sprintf("%s failed: %v", msg.action, msg.err), false)
		return
	}

	if msg.snapshot != nil {
		m.tracker.Accept(*msg.snapshot)
		if msg.saving {
			m.draft.MarkSaved(*m.tracker.Doc, msg.revision)
		}
		m.adoptRemote()
	}
	switch {
	case msg.saving && m.draft.Dirty():
		m.setStatus("saved, newer edits not yet saved", true)
	case msg.saving:
		m.setStatus("saved", true)
	default:
		m.setStatus(string(msg.action)+" ok", true)
	}
}

func (m *Model) adoptRemote() {
	if m.tracker.Doc != nil {
		m.draft.Adopt(*m.tracker.Doc)
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.draft.Phases) {
		m.selected = len(m.draft.Phases) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) setStatus(text string, ok bool) {
	m.status = text
	m.statusOK = ok
}

func (m Model) selectedPhase() (model.Phase, bool) {
	if m.selected < 0 || m.selected >= len(m.draft.Phases) {
		return model.Phase{}, false
	}
	return m.draft.Phases[m.selected], true
}

func (m Model) View() string {
	sections := []string{m.liveLine(), m.editor()}
	if m.status != "" {
		style := m.styles.Error
		if m.statusOK {
			style = m.styles.Done
		}
		sections = append(sections, style.Render(m.status))
	}
	sections = append(sections, m.styles.Muted.Render(
		"s start · p pause · r reset · + 5min phase · A add 5min · a/x phase · K/J move · e/m/n/t edit · ctrl+s save · q quit",
	))
	return m.styles.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) liveLine() string {
	view, ok := m.tracker.View()
	if !ok {
		return m.styles.Muted.Render("waiting for timer…")
	}

	line := fmt.Sprintf("%s  %s  %d/%d %s  phase %s  total %s  v%d",
		m.styles.Title.Render(m.tracker.Doc.Title),
		view.Status,
		view.Index+1, view.Count, view.Current.Name,
		timer.FormatRemaining(view.PhaseRemainingMs),
		timer.FormatRemaining(view.TotalRemainingMs),
		m.tracker.Doc.Version,
	)
	if m.pending > 0 {
		line += "  …"
	}
	switch {
	case m.closed:
		line += "  " + m.styles.Error.Render("subscription closed")
	case m.tracker.Err != nil:
		line += "  " + m.styles.Error.Render("reconnecting")
	}
	return line
}

func (m Model) editor() string {
	var b strings.Builder

	title := m.draft.Title
	if m.editing == fieldTitle {
		title = m.input + "▏"
	}
	b.WriteString("title: " + title)
	if m.draft.Dirty() {
		b.WriteString("  " + m.styles.Hot.Render("● unsaved"))
	}
	b.WriteString("\n")

	if len(m.draft.Phases) == 0 {
		b.WriteString(m.styles.Muted.Render("no phases, the whole session is one countdown (a to add)"))
	}
	for i, phase := range m.draft.Phases {
		name, minutes, note := phase.Name, timer.MinutesText(phase.Seconds), phase.Note
		if i == m.selected {
			switch m.editing {
			case fieldName:
				name = m.input + "▏"
			case fieldMinutes:
				minutes = m.input + "▏"
			case fieldNote:
				note = m.input + "▏"
			}
		}
		row := fmt.Sprintf("%2d. %-24s %6s min  %s", i+1, name, minutes, note)
		if i == m.selected {
			row = m.styles.Selected.Render(row)
		}
		b.WriteString(row)
		if i < len(m.draft.Phases)-1 {
			b.WriteString("\n")
		}
	}

	if m.editing != fieldNone {
		b.WriteString("\n" + m.styles.Muted.Render("editing "+fieldLabels[m.editing]+", enter to finish"))
	}
	return m.styles.Pane.Render(b.String())
}
