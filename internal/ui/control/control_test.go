package control

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"madamis/backend/internal/client"
	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
	"madamis/backend/internal/ui/live"
)

var now = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

// fakeCommander applies commands to an in-memory document.
type fakeCommander struct {
	doc      model.TimerDocument
	requests []timer.Request
	err      error
}

func (f *fakeCommander) Command(_ context.Context, _ string, req timer.Request) (*realtime.Snapshot, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	next, changed := timer.Apply(f.doc, req.Command, now)
	if changed {
		next.Version = f.doc.Version + 1
		f.doc = next
	}
	snapshot := realtime.NewSnapshot(f.doc, now)
	return &snapshot, nil
}

func newModel(t *testing.T, commander *fakeCommander) Model {
	t.Helper()
	m := New("s1", commander, nil, "dark", func() time.Time { return now })
	snapshot := realtime.NewSnapshot(commander.doc, now)
	return update(t, m, live.EventMsg{Event: client.Event{Snapshot: &snapshot}})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// press sends a key and runs any command it produced, feeding the result back.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(key)
	m = updated.(Model)
	if cmd != nil {
		if done, ok := cmd().(commandDoneMsg); ok {
			m = update(t, m, done)
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func configuredDoc() model.TimerDocument {
	doc := model.NewTimerDocument("s1")
	doc.Title = "Orient Express"
	doc.Phases = []model.Phase{{Name: "Reading", Seconds: 300}, {Name: "Discussion", Seconds: 600}}
	doc.Version = 4
	return doc
}

func TestEditAndSaveSendsWholeDraft(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	m = press(t, m, runes("a"))
	m = press(t, m, runes("m"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = press(t, m, runes("12"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.draft.Dirty() || m.draft.Phases[2].Seconds != 720 {
		t.Fatalf("expected dirty draft with 12 minute phase, got %+v", m.draft.Phases)
	}
	if len(commander.requests) != 0 {
		t.Fatalf("editing must not send commands, got %d", len(commander.requests))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	if len(commander.requests) != 1 {
		t.Fatalf("expected one save, got %d", len(commander.requests))
	}
	req := commander.requests[0]
	cfg, ok := req.Command.(timer.Config)
	if !ok || len(cfg.Phases) != 3 || cfg.Phases[2].Name != timer.NewPhaseName || req.BaseVersion != 4 {
		t.Fatalf("unexpected save request %+v", req)
	}
	if m.draft.Dirty() || m.draft.BaseVersion != 5 {
		t.Fatalf("expected clean draft at version 5, got dirty=%v base=%d", m.draft.Dirty(), m.draft.BaseVersion)
	}
	if !strings.Contains(m.View(), "saved") {
		t.Fatalf("expected saved status in view:\n%s", m.View())
	}
}

func TestEditsTypedDuringSaveSurvive(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	m = press(t, m, runes("t"))
	m = press(t, m, runes("!"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	updated, save := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = updated.(Model)
	if save == nil {
		t.Fatal("expected a save command")
	}
	m = press(t, m, runes("t"))
	m = press(t, m, runes("?"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = update(t, m, save())

	if commander.doc.Title != "Orient Express!" {
		t.Fatalf("expected the sent title stored, got %q", commander.doc.Title)
	}
	if !m.draft.Dirty() || m.draft.Title != "Orient Express!?" {
		t.Fatalf("edit typed during the save was lost: dirty=%v title=%q", m.draft.Dirty(), m.draft.Title)
	}
	if m.draft.BaseVersion != 5 {
		t.Fatalf("expected base version 5 after the save, got %d", m.draft.BaseVersion)
	}
}

func TestRemoteUpdateDoesNotClobberDirtyDraft(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	m = press(t, m, runes("t"))
	m = press(t, m, runes("!"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	remote := configuredDoc()
	remote.Title = "Renamed elsewhere"
	remote.Phases = []model.Phase{{Name: "Only", Seconds: 60}}
	remote.Version = 9
	snapshot := realtime.NewSnapshot(remote, now)
	m = update(t, m, live.EventMsg{Event: client.Event{Snapshot: &snapshot}})

	if m.draft.Title != "Orient Express!" || len(m.draft.Phases) != 2 {
		t.Fatalf("dirty draft was overwritten: %+v", m.draft)
	}
	if m.tracker.Doc.Version != 9 {
		t.Fatalf("live document should still follow the remote, got v%d", m.tracker.Doc.Version)
	}
}

func TestCleanDraftFollowsRemote(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	remote := configuredDoc()
	remote.Phases = []model.Phase{{Name: "Only", Seconds: 60}}
	remote.Version = 5
	snapshot := realtime.NewSnapshot(remote, now)
	m = update(t, m, live.EventMsg{Event: client.Event{Snapshot: &snapshot}})

	if len(m.draft.Phases) != 1 || m.draft.BaseVersion != 5 {
		t.Fatalf("clean draft should adopt the remote, got %+v", m.draft)
	}
}

func TestExtendCurrentPhaseSavesImmediately(t *testing.T) {
	doc := configuredDoc()
	startedAt := now.Add(-400 * time.Second)
	doc.Status = model.StatusRunning
	doc.StartedAt = &startedAt
	commander := &fakeCommander{doc: doc}
	m := newModel(t, commander)

	m = press(t, m, runes("+"))

	if len(commander.requests) != 1 {
		t.Fatalf("expected an immediate save, got %d requests", len(commander.requests))
	}
	if got := commander.doc.Phases[1].Seconds; got != 900 {
		t.Fatalf("expected the running phase extended to 900s, got %d", got)
	}
	if commander.doc.Phases[0].Seconds != 300 {
		t.Fatalf("other phases must not change, got %+v", commander.doc.Phases)
	}
	if m.draft.Dirty() {
		t.Fatal("draft should be clean after the save")
	}
}

func TestQuickActionsSendCommands(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	m = press(t, m, runes("s"))
	m = press(t, m, runes("p"))
	m = press(t, m, runes("A"))
	m = press(t, m, runes("r"))

	want := []timer.Action{timer.ActionStart, timer.ActionPause, timer.ActionAdd, timer.ActionReset}
	if len(commander.requests) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(commander.requests))
	}
	for i, action := range want {
		if commander.requests[i].Command.Action() != action {
			t.Fatalf("request %d: expected %s, got %s", i, action, commander.requests[i].Command.Action())
		}
		if commander.requests[i].BaseVersion != 0 {
			t.Fatalf("quick actions must not carry a base version")
		}
	}
	if add := commander.requests[2].Command.(timer.Add); add.Seconds != 300 {
		t.Fatalf("expected add(300), got %d", add.Seconds)
	}
}

func TestConflictKeepsDraftAndShowsStatus(t *testing.T) {
	latest := configuredDoc()
	latest.Version = 8
	details, err := json.Marshal(map[string]interface{}{"state": realtime.NewSnapshot(latest, now)})
	if err != nil {
		t.Fatalf("marshal details: %v", err)
	}
	conflict := apperrors.Conflict("state_conflict", "timer changed on another device", json.RawMessage(details))

	commander := &fakeCommander{doc: configuredDoc(), err: conflict}
	m := newModel(t, commander)
	m = press(t, m, runes("x"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	if !m.draft.Dirty() || len(m.draft.Phases) != 1 {
		t.Fatalf("draft must survive a conflict, got %+v", m.draft)
	}
	if m.draft.BaseVersion != 8 || m.tracker.Doc.Version != 8 {
		t.Fatalf("expected base version 8, got %d", m.draft.BaseVersion)
	}
	if !strings.Contains(m.status, "changed elsewhere") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestMoveAndSelectStayInBounds(t *testing.T) {
	commander := &fakeCommander{doc: configuredDoc()}
	m := newModel(t, commander)

	m = press(t, m, runes("K"))
	if m.selected != 0 || m.draft.Phases[0].Name != "Reading" {
		t.Fatalf("move up at the top must be a no-op, got %+v", m.draft.Phases)
	}
	m = press(t, m, runes("J"))
	if m.selected != 1 || m.draft.Phases[1].Name != "Reading" {
		t.Fatalf("expected Reading moved down, got %+v", m.draft.Phases)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Fatalf("selection must stop at the last phase, got %d", m.selected)
	}
	m = press(t, m, runes("x"))
	m = press(t, m, runes("x"))
	if m.selected != 0 || len(m.draft.Phases) != 0 {
		t.Fatalf("expected empty draft, got %+v", m.draft.Phases)
	}
}
