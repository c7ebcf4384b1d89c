package timer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"madamis/backend/internal/model"
)

type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionReset  Action = "reset"
	ActionAdd    Action = "add"
	ActionConfig Action = "config"
)

var ErrInvalidCommand = errors.New("invalid timer command")

// Command is one of Start, Pause, Reset, Add or Config.
type Command interface {
	Action() Action
}

// Start begins or resumes the run. Title, when set, replaces the document title.
type Start struct {
	Title *string
}

type Pause struct{}

type Reset struct{}

// Add shifts the flat durationSec. Phases are left untouched.
type Add struct {
	Seconds int64
}

// Config replaces the title and phase list. A nil Agenda or ShowPhaseStrip
// leaves the stored value alone.
type Config struct {
	Title          string
	Phases         []model.Phase
	Agenda         []model.AgendaItem
	ShowPhaseStrip *bool
}

func (Start) Action() Action  { return ActionStart }
func (Pause) Action() Action  { return ActionPause }
func (Reset) Action() Action  { return ActionReset }
func (Add) Action() Action    { return ActionAdd }
func (Config) Action() Action { return ActionConfig }

// Apply transforms doc by cmd at now. The boolean is false when the command
// leaves the document as it was and nothing needs to be written.
func Apply(doc model.TimerDocument, cmd Command, now time.Time) (model.TimerDocument, bool) {
	next := doc.Clone()
	switch c := cmd.(type) {
	case Start:
		if doc.Status == model.StatusRunning {
			return doc, false
		}
		startedAt := now
		next.Status = model.StatusRunning
		next.StartedAt = &startedAt
		if c.Title != nil {
			next.Title = titleOrDefault(*c.Title)
		}
	case Pause:
		next.ElapsedMs = EffectiveElapsedMs(doc, now)
		next.Status = model.StatusPaused
		next.StartedAt = nil
	case Reset:
		next.Status = model.StatusIdle
		next.ElapsedMs = 0
		next.StartedAt = nil
	case Add:
		next.DurationSec = doc.DurationSec + c.Seconds
		if next.DurationSec < 0 {
			next.DurationSec = 0
		}
	case Config:
		next.Title = titleOrDefault(c.Title)
		next.Phases = SanitizePhases(c.Phases)
		if len(next.Phases) > 0 {
			next.DurationSec = sumSeconds(next.Phases)
		}
		if c.Agenda != nil {
			next.Agenda = sanitizeAgenda(c.Agenda)
		}
		if c.ShowPhaseStrip != nil {
			next.ShowPhaseStrip = *c.ShowPhaseStrip
		}
	default:
		return doc, false
	}
	return next, true
}

// SanitizePhases applies the stored-phase rules: blank names fall back to the
// default name, seconds are floored at zero and blank notes are dropped.
func SanitizePhases(phases []model.Phase) []model.Phase {
	out := make([]model.Phase, 0, len(phases))
	for _, phase := range phases {
		name := strings.TrimSpace(phase.Name)
		if name == "" {
			name = model.DefaultPhaseName
		}
		seconds := phase.Seconds
		if seconds < 0 {
			seconds = 0
		}
		out = append(out, model.Phase{
			Name:    name,
			Seconds: seconds,
			Note:    strings.TrimSpace(phase.Note),
		})
	}
	return out
}

func sanitizeAgenda(items []model.AgendaItem) []model.AgendaItem {
	out := make([]model.AgendaItem, 0, len(items))
	for _, item := range items {
		label := strings.TrimSpace(item.Label)
		if label == "" {
			continue
		}
		out = append(out, model.AgendaItem{Label: label, At: strings.TrimSpace(item.At)})
	}
	return out
}

func titleOrDefault(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return model.DefaultTimerTitle
	}
	return trimmed
}

// Request is the wire form of a command: {"action": "...", ...fields}.
type Request struct {
	Command     Command
	BaseVersion int64
}

type requestWire struct {
	Action         Action             `json:"action"`
	Title          *string            `json:"title,omitempty"`
	Seconds        *Seconds           `json:"seconds,omitempty"`
	Phases         []phaseWire        `json:"phases,omitempty"`
	Agenda         []model.AgendaItem `json:"agenda,omitempty"`
	ShowPhaseStrip *bool              `json:"showPhaseStrip,omitempty"`
	BaseVersion    int64              `json:"baseVersion,omitempty"`
}

type phaseWire struct {
	Name    string  `json:"name"`
	Seconds Seconds `json:"seconds"`
	Note    *string `json:"note,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	wire := requestWire{BaseVersion: r.BaseVersion}
	switch c := r.Command.(type) {
	case Start:
		wire.Action = ActionStart
		wire.Title = c.Title
	case Pause:
		wire.Action = ActionPause
	case Reset:
		wire.Action = ActionReset
	case Add:
		seconds := Seconds(c.Seconds)
		wire.Action = ActionAdd
		wire.Seconds = &seconds
	case Config:
		title := c.Title
		wire.Action = ActionConfig
		wire.Title = &title
		wire.Phases = make([]phaseWire, 0, len(c.Phases))
		for _, phase := range c.Phases {
			pw := phaseWire{Name: phase.Name, Seconds: Seconds(phase.Seconds)}
			if phase.Note != "" {
				note := phase.Note
				pw.Note = &note
			}
			wire.Phases = append(wire.Phases, pw)
		}
		wire.Agenda = c.Agenda
		wire.ShowPhaseStrip = c.ShowPhaseStrip
	default:
		return nil, fmt.Errorf("%w: no command", ErrInvalidCommand)
	}
	return json.Marshal(wire)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var wire requestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	r.BaseVersion = wire.BaseVersion
	switch wire.Action {
	case ActionStart:
		r.Command = Start{Title: wire.Title}
	case ActionPause:
		r.Command = Pause{}
	case ActionReset:
		r.Command = Reset{}
	case ActionAdd:
		if wire.Seconds == nil {
			return fmt.Errorf("%w: add requires seconds", ErrInvalidCommand)
		}
		r.Command = Add{Seconds: int64(*wire.Seconds)}
	case ActionConfig:
		cfg := Config{
			Phases:         make([]model.Phase, 0, len(wire.Phases)),
			Agenda:         wire.Agenda,
			ShowPhaseStrip: wire.ShowPhaseStrip,
		}
		if wire.Title != nil {
			cfg.Title = *wire.Title
		}
		for _, pw := range wire.Phases {
			phase := model.Phase{Name: pw.Name, Seconds: int64(pw.Seconds)}
			if pw.Note != nil {
				phase.Note = *pw.Note
			}
			cfg.Phases = append(cfg.Phases, phase)
		}
		r.Command = cfg
	case "":
		return fmt.Errorf("%w: action is required", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, wire.Action)
	}
	return nil
}

// ParseRequest decodes a command body.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		if errors.Is(err, ErrInvalidCommand) {
			return Request{}, err
		}
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return req, nil
}

const maxSeconds = 1 << 40

// Seconds decodes a JSON number or numeric string, flooring fractions.
// Anything unparseable decodes as zero.
type Seconds int64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*s = 0
		return nil
	}
	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			*s = 0
			return nil
		}
		text = strings.TrimSpace(unquoted)
	}
	*s = Seconds(floorSeconds(text, 1))
	return nil
}

// ParseMinutes converts minute text such as "12.5" to whole seconds.
func ParseMinutes(text string) int64 {
	return floorSeconds(strings.TrimSpace(text), 60)
}

func floorSeconds(text string, unit float64) int64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	value = math.Floor(value * unit)
	if value > maxSeconds {
		return maxSeconds
	}
	if value < -maxSeconds {
		return -maxSeconds
	}
	return int64(value)
}
