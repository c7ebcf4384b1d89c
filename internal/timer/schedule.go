// Package timer holds the pure rules of the session clock: how commands
// transform a document, how a document resolves into the phase being played
// at a given instant, and how the control surface edits a phase list.
package timer

import (
	"strings"

	"madamis/backend/internal/model"
)

// Schedule is either a SinglePhase or a MultiPhase.
type Schedule interface {
	Phases() []model.Phase
	TotalSeconds() int64
	schedule()
}

// SinglePhase is the implicit schedule of a document with no explicit phases.
type SinglePhase struct {
	Name    string
	Seconds int64
}

type MultiPhase struct {
	Items []model.Phase
}

func (s SinglePhase) Phases() []model.Phase {
	return []model.Phase{{Name: s.Name, Seconds: s.Seconds}}
}

func (s SinglePhase) TotalSeconds() int64 { return s.Seconds }

func (SinglePhase) schedule() {}

func (m MultiPhase) Phases() []model.Phase {
	out := make([]model.Phase, len(m.Items))
	for i, phase := range m.Items {
		out[i] = phase
		if out[i].Seconds < 0 {
			out[i].Seconds = 0
		}
	}
	return out
}

func (m MultiPhase) TotalSeconds() int64 {
	return sumSeconds(m.Items)
}

func (MultiPhase) schedule() {}

// ScheduleOf resolves the document's phase list. An empty list becomes a
// single phase named after the title and lasting durationSec.
func ScheduleOf(doc model.TimerDocument) Schedule {
	if len(doc.Phases) > 0 {
		return MultiPhase{Items: doc.Phases}
	}
	name := strings.TrimSpace(doc.Title)
	if name == "" {
		name = model.DefaultTimerTitle
	}
	seconds := doc.DurationSec
	if seconds < 0 {
		seconds = 0
	}
	return SinglePhase{Name: name, Seconds: seconds}
}

func sumSeconds(phases []model.Phase) int64 {
	var total int64
	for _, phase := range phases {
		if phase.Seconds > 0 {
			total += phase.Seconds
		}
	}
	return total
}
