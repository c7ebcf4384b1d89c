package timer

import (
	"testing"
	"time"

	"madamis/backend/internal/model"
)

func remoteDoc(version int64, phases ...model.Phase) model.TimerDocument {
	doc := model.NewTimerDocument("session-1")
	doc.Title = "Remote"
	doc.Phases = phases
	doc.DurationSec = sumSeconds(phases)
	doc.Version = version
	return doc
}

func TestDraftAdoptsRemoteWhileClean(t *testing.T) {
	draft := NewDraft()

	if !draft.Adopt(remoteDoc(3, model.Phase{Name: "A", Seconds: 60})) {
		t.Fatal("expected a clean draft to adopt the remote document")
	}
	if draft.Title != "Remote" || len(draft.Phases) != 1 || draft.BaseVersion != 3 {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if draft.Dirty() {
		t.Fatal("adopting must not mark the draft dirty")
	}
}

func TestDraftIgnoresRemoteAfterLocalEdit(t *testing.T) {
	draft := NewDraft()
	draft.Adopt(remoteDoc(1, model.Phase{Name: "A", Seconds: 60}))

	draft.SetPhaseName(0, "Local")
	if !draft.Dirty() {
		t.Fatal("expected edit to mark the draft dirty")
	}
	if draft.Adopt(remoteDoc(2, model.Phase{Name: "B", Seconds: 120})) {
		t.Fatal("dirty draft must not adopt remote changes")
	}
	if draft.Phases[0].Name != "Local" || draft.BaseVersion != 1 {
		t.Fatalf("local edit lost: %+v", draft)
	}

	draft.MarkSaved(remoteDoc(3, model.Phase{Name: "Local", Seconds: 60}), draft.Revision())
	if draft.Dirty() || draft.BaseVersion != 3 {
		t.Fatalf("expected clean draft at version 3, got dirty=%v version=%d", draft.Dirty(), draft.BaseVersion)
	}
	if !draft.Adopt(remoteDoc(4, model.Phase{Name: "C", Seconds: 30})) {
		t.Fatal("expected adoption to resume after save")
	}
}

func TestDraftPhaseListEdits(t *testing.T) {
	draft := NewDraft()
	first := draft.AddPhase()
	second := draft.AddPhase()
	draft.SetPhaseName(first, "Intro")
	draft.SetPhaseName(second, "Debate")

	if draft.Phases[0].Seconds != NewPhaseSeconds {
		t.Fatalf("expected new phases to last 5 minutes, got %d", draft.Phases[0].Seconds)
	}
	if draft.MoveUp(0) || draft.MoveDown(1) {
		t.Fatal("moves past the edges must be no-ops")
	}
	if !draft.MoveDown(0) || draft.Phases[0].Name != "Debate" || draft.Phases[1].Name != "Intro" {
		t.Fatalf("expected swap, got %+v", draft.Phases)
	}
	if !draft.MoveUp(1) || draft.Phases[0].Name != "Intro" {
		t.Fatalf("expected swap back, got %+v", draft.Phases)
	}
	if !draft.RemovePhase(0) || len(draft.Phases) != 1 || draft.Phases[0].Name != "Debate" {
		t.Fatalf("unexpected phases after remove %+v", draft.Phases)
	}
	if draft.RemovePhase(5) {
		t.Fatal("remove out of range must fail")
	}
}

func TestDraftMinutesConversion(t *testing.T) {
	draft := NewDraft()
	i := draft.AddPhase()

	cases := map[string]int64{
		"12":   720,
		"1.5":  90,
		"0.01": 0,
		"":     0,
		"abc":  0,
		"-2":   -120,
	}
	for text, want := range cases {
		draft.SetPhaseMinutes(i, text)
		if draft.Phases[i].Seconds != want {
			t.Fatalf("minutes %q -> %d seconds, want %d", text, draft.Phases[i].Seconds, want)
		}
	}

	cfg := draft.ConfigCommand()
	if cfg.Phases[0].Seconds != 0 {
		t.Fatalf("expected negative seconds sanitized on save, got %d", cfg.Phases[0].Seconds)
	}
}

func TestDraftExtendCurrentPhase(t *testing.T) {
	doc := remoteDoc(1, model.Phase{Name: "A", Seconds: 300}, model.Phase{Name: "B", Seconds: 600})
	draft := NewDraft()
	draft.Adopt(doc)

	if !draft.ExtendPhase(doc, 1, ExtendSeconds) {
		t.Fatal("expected extend to succeed")
	}
	if draft.Phases[1].Seconds != 900 || !draft.Dirty() {
		t.Fatalf("unexpected draft after extend %+v", draft)
	}

	applied, _ := Apply(doc, draft.ConfigCommand(), baseTime)
	if applied.DurationSec != 1200 {
		t.Fatalf("expected total 1200 after save, got %d", applied.DurationSec)
	}
}

func TestDraftExtendMaterializesImplicitPhase(t *testing.T) {
	doc := model.NewTimerDocument("session-1")
	doc.Title = "One Shot"
	doc.DurationSec = 1800
	draft := NewDraft()
	draft.Adopt(doc)

	draft.ExtendPhase(doc, 0, ExtendSeconds)

	if len(draft.Phases) != 1 || draft.Phases[0].Name != "One Shot" || draft.Phases[0].Seconds != 2100 {
		t.Fatalf("unexpected materialized phase %+v", draft.Phases)
	}
}

func TestDraftEditsDuringSaveStayDirty(t *testing.T) {
	draft := NewDraft()
	draft.Adopt(remoteDoc(1, model.Phase{Name: "A", Seconds: 60}))
	draft.SetTitle("Sent")
	sent := draft.Revision()

	draft.SetTitle("Typed while saving")
	draft.MarkSaved(remoteDoc(2, model.Phase{Name: "A", Seconds: 60}), sent)

	if !draft.Dirty() || draft.Title != "Typed while saving" {
		t.Fatalf("later edit must survive the save, got dirty=%v title=%q", draft.Dirty(), draft.Title)
	}
	if draft.BaseVersion != 2 {
		t.Fatalf("expected base version to follow the save, got %d", draft.BaseVersion)
	}
}

func TestDraftExtendRefillsEmptiedDraftAtRunningPhase(t *testing.T) {
	doc := remoteDoc(1, model.Phase{Name: "A", Seconds: 300}, model.Phase{Name: "B", Seconds: 600})
	startedAt := baseTime.Add(-400 * time.Second)
	doc.Status = model.StatusRunning
	doc.StartedAt = &startedAt
	draft := NewDraft()
	draft.Adopt(doc)
	draft.RemovePhase(0)
	draft.RemovePhase(0)

	view := Resolve(doc, baseTime)
	if !draft.ExtendPhase(doc, view.Index, ExtendSeconds) {
		t.Fatal("expected extend to succeed")
	}
	if len(draft.Phases) != 2 || draft.Phases[0].Seconds != 300 || draft.Phases[1].Seconds != 900 {
		t.Fatalf("expected the running phase B extended, got %+v", draft.Phases)
	}
}

func TestMinutesText(t *testing.T) {
	if got := MinutesText(90); got != "1.5" {
		t.Fatalf("expected 1.5, got %s", got)
	}
	if got := MinutesText(600); got != "10" {
		t.Fatalf("expected 10, got %s", got)
	}
}
