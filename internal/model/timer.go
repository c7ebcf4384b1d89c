package model

import "time"

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusPaused  = "paused"
)

const (
	DefaultTimerTitle      = "Session Timer"
	DefaultPhaseName       = "Phase"
	DefaultDurationSeconds = 60 * 60
)

type Phase struct {
	Name    string `json:"name" yaml:"name"`
	Seconds int64  `json:"seconds" yaml:"seconds"`
	Note    string `json:"note,omitempty" yaml:"note,omitempty"`
}

// AgendaItem is a display-only schedule line such as {"Dinner break", "19:30"}.
type AgendaItem struct {
	Label string `json:"label" yaml:"label"`
	At    string `json:"at" yaml:"at"`
}

// TimerDocument is the single shared state of one session's clock.
// StartedAt is set iff Status is running.
type TimerDocument struct {
	SessionID      string       `json:"sessionId"`
	Status         string       `json:"status"`
	ElapsedMs      int64        `json:"elapsedMs"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	Title          string       `json:"title"`
	Phases         []Phase      `json:"phases"`
	DurationSec    int64        `json:"durationSec"`
	Agenda         []AgendaItem `json:"agenda"`
	ShowPhaseStrip bool         `json:"showPhaseStrip"`
	Version        int64        `json:"version"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func NewTimerDocument(sessionID string) TimerDocument {
	return TimerDocument{
		SessionID:      sessionID,
		Status:         StatusIdle,
		Title:          DefaultTimerTitle,
		Phases:         []Phase{},
		DurationSec:    DefaultDurationSeconds,
		Agenda:         []AgendaItem{},
		ShowPhaseStrip: true,
	}
}

// Clone returns a copy that shares no slices or pointers with d.
func (d TimerDocument) Clone() TimerDocument {
	out := d
	if d.StartedAt != nil {
		startedAt := *d.StartedAt
		out.StartedAt = &startedAt
	}
	out.Phases = append(make([]Phase, 0, len(d.Phases)), d.Phases...)
	out.Agenda = append(make([]AgendaItem, 0, len(d.Agenda)), d.Agenda...)
	return out
}
