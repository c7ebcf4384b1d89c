package timer

import (
	"fmt"
	"time"

	"madamis/backend/internal/model"
)

// View is the resolved state of a document at one instant.
type View struct {
	Status           string        `json:"status"`
	Index            int           `json:"index"`
	Count            int           `json:"count"`
	Current          model.Phase   `json:"current"`
	Previous         *model.Phase  `json:"previous,omitempty"`
	Next             *model.Phase  `json:"next,omitempty"`
	PhaseRemainingMs int64         `json:"phaseRemainingMs"`
	TotalRemainingMs int64         `json:"totalRemainingMs"`
	ElapsedMs        int64         `json:"elapsedMs"`
	TotalMs          int64         `json:"totalMs"`
	Phases           []model.Phase `json:"phases"`
}

// EffectiveElapsedMs is the stored elapsed time plus the running segment.
// A startedAt ahead of now counts as zero.
func EffectiveElapsedMs(doc model.TimerDocument, now time.Time) int64 {
	elapsed := doc.ElapsedMs
	if elapsed < 0 {
		elapsed = 0
	}
	if doc.Status == model.StatusRunning && doc.StartedAt != nil {
		segment := now.Sub(*doc.StartedAt).Milliseconds()
		if segment > 0 {
			elapsed += segment
		}
	}
	return elapsed
}

// Resolve finds the phase being played at now. When the run has overshot the
// last phase, the last phase stays current with zero remaining.
func Resolve(doc model.TimerDocument, now time.Time) View {
	phases := ScheduleOf(doc).Phases()
	elapsedMs := EffectiveElapsedMs(doc, now)
	elapsedSec := elapsedMs / 1000

	var totalSec int64
	for _, phase := range phases {
		totalSec += phase.Seconds
	}

	index := len(phases) - 1
	var cum int64
	var startOfIndex int64
	for i, phase := range phases {
		if elapsedSec < cum+phase.Seconds {
			index = i
			startOfIndex = cum
			break
		}
		startOfIndex = cum
		cum += phase.Seconds
	}

	current := phases[index]
	into := elapsedSec - startOfIndex
	if into < 0 {
		into = 0
	}
	if into > current.Seconds {
		into = current.Seconds
	}

	view := View{
		Status:           doc.Status,
		Index:            index,
		Count:            len(phases),
		Current:          current,
		PhaseRemainingMs: nonNegative(current.Seconds-into) * 1000,
		TotalRemainingMs: nonNegative(totalSec*1000 - elapsedMs),
		ElapsedMs:        elapsedMs,
		TotalMs:          totalSec * 1000,
		Phases:           phases,
	}
	if index > 0 {
		prev := phases[index-1]
		view.Previous = &prev
	}
	if index+1 < len(phases) {
		next := phases[index+1]
		view.Next = &next
	}
	return view
}

// FormatRemaining renders milliseconds as H:MM:SS from one hour up, M:SS below.
func FormatRemaining(ms int64) string {
	total := nonNegative(ms) / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
