// Package live keeps the last known timer document for a terminal surface and
// feeds subscription events and render ticks into a bubbletea program.
package live

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"madamis/backend/internal/client"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
)

const TickInterval = 100 * time.Millisecond

type EventMsg struct{ Event client.Event }

// ClosedMsg reports that the subscription channel was closed.
type ClosedMsg struct{}

type TickMsg time.Time

// Wait delivers the next subscription event as a message.
func Wait(events <-chan client.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return ClosedMsg{}
		}
		return EventMsg{Event: event}
	}
}

func Tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Tracker holds the newest document seen and the offset between the
// server's clock and the local one.
type Tracker struct {
	Doc       *model.TimerDocument
	Offset    time.Duration
	Connected bool
	Err       error

	now func() time.Time
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Observe folds a subscription event in. Snapshots older than the current
// document are ignored and reported as false.
func (t *Tracker) Observe(event client.Event) bool {
	switch {
	case event.Connected:
		t.Connected = true
		t.Err = nil
	case event.Err != nil:
		t.Connected = false
		t.Err = event.Err
	case event.Snapshot != nil:
		return t.Accept(*event.Snapshot)
	}
	return false
}

// Accept stores snapshot unless a newer document is already held.
func (t *Tracker) Accept(snapshot realtime.Snapshot) bool {
	if t.Doc != nil && snapshot.Document.Version < t.Doc.Version {
		return false
	}
	doc := snapshot.Document.Clone()
	t.Doc = &doc
	if !snapshot.ServerTime.IsZero() {
		t.Offset = snapshot.ServerTime.Sub(t.now())
	}
	return true
}

// Now is the local clock corrected by the server offset.
func (t *Tracker) Now() time.Time {
	return t.now().Add(t.Offset)
}

// View resolves the held document at Now. ok is false before the first
// snapshot.
func (t *Tracker) View() (timer.View, bool) {
	if t.Doc == nil {
		return timer.View{}, false
	}
	return timer.Resolve(*t.Doc, t.Now()), true
}
