package timer

import (
	"strconv"

	"madamis/backend/internal/model"
)

const (
	NewPhaseName    = "New phase"
	NewPhaseSeconds = 5 * 60
	ExtendSeconds   = 5 * 60
)

// Draft is the control surface's local copy of the title and phase list.
// Remote updates replace it only while it is clean; any local edit marks it
// dirty until the next successful save.
type Draft struct {
	Title       string
	Phases      []model.Phase
	BaseVersion int64

	dirty    bool
	revision int
}

func NewDraft() *Draft {
	return &Draft{Title: model.DefaultTimerTitle, Phases: []model.Phase{}}
}

func (d *Draft) Dirty() bool { return d.dirty }

// Revision counts local edits. A save remembers the revision it sent.
func (d *Draft) Revision() int { return d.revision }

func (d *Draft) touch() {
	d.dirty = true
	d.revision++
}

// Adopt copies the remote title and phases unless there are unsaved edits.
func (d *Draft) Adopt(doc model.TimerDocument) bool {
	if d.dirty {
		return false
	}
	d.Title = doc.Title
	d.Phases = append(make([]model.Phase, 0, len(doc.Phases)), doc.Phases...)
	d.BaseVersion = doc.Version
	return true
}

// MarkSaved records that the draft as of revision was stored as doc. Edits
// made after that revision stay dirty; only the base version moves forward.
func (d *Draft) MarkSaved(doc model.TimerDocument, revision int) {
	if revision != d.revision {
		d.BaseVersion = doc.Version
		return
	}
	d.dirty = false
	d.Adopt(doc)
}

func (d *Draft) SetTitle(title string) {
	d.Title = title
	d.touch()
}

func (d *Draft) AddPhase() int {
	d.Phases = append(d.Phases, model.Phase{Name: NewPhaseName, Seconds: NewPhaseSeconds})
	d.touch()
	return len(d.Phases) - 1
}

func (d *Draft) RemovePhase(i int) bool {
	if !d.valid(i) {
		return false
	}
	d.Phases = append(d.Phases[:i:i], d.Phases[i+1:]...)
	d.touch()
	return true
}

func (d *Draft) MoveUp(i int) bool {
	if !d.valid(i) || i == 0 {
		return false
	}
	d.Phases[i-1], d.Phases[i] = d.Phases[i], d.Phases[i-1]
	d.touch()
	return true
}

func (d *Draft) MoveDown(i int) bool {
	if !d.valid(i) || i == len(d.Phases)-1 {
		return false
	}
	d.Phases[i+1], d.Phases[i] = d.Phases[i], d.Phases[i+1]
	d.touch()
	return true
}

func (d *Draft) SetPhaseName(i int, name string) bool {
	if !d.valid(i) {
		return false
	}
	d.Phases[i].Name = name
	d.touch()
	return true
}

// SetPhaseMinutes converts minute text to seconds; unparseable text is zero.
func (d *Draft) SetPhaseMinutes(i int, minutes string) bool {
	if !d.valid(i) {
		return false
	}
	d.Phases[i].Seconds = ParseMinutes(minutes)
	d.touch()
	return true
}

func (d *Draft) SetPhaseNote(i int, note string) bool {
	if !d.valid(i) {
		return false
	}
	d.Phases[i].Note = note
	d.touch()
	return true
}

// ExtendPhase lengthens phase i of doc's schedule. An empty draft is refilled
// from doc first so the extension survives a config save; only the implicit
// single phase is addressed as index 0.
func (d *Draft) ExtendPhase(doc model.TimerDocument, i int, seconds int64) bool {
	if len(d.Phases) == 0 {
		d.Phases = ScheduleOf(doc).Phases()
		if len(doc.Phases) == 0 {
			i = 0
		}
	}
	if !d.valid(i) {
		return false
	}
	d.Phases[i].Seconds += seconds
	if d.Phases[i].Seconds < 0 {
		d.Phases[i].Seconds = 0
	}
	d.touch()
	return true
}

// ConfigCommand builds the config command for the whole draft.
func (d *Draft) ConfigCommand() Config {
	return Config{
		Title:  d.Title,
		Phases: SanitizePhases(d.Phases),
	}
}

// MinutesText renders phase seconds for an edit field.
func MinutesText(seconds int64) string {
	return strconv.FormatFloat(float64(seconds)/60, 'f', -1, 64)
}

func (d *Draft) valid(i int) bool {
	return i >= 0 && i < len(d.Phases)
}
