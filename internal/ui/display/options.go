package display

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"madamis/backend/internal/ui/theme"
)

const (
	minScale = 1
	maxScale = 4
)

// Options are the cosmetic knobs of the display surface. They never change
// what time is shown, only how.
type Options struct {
	Theme        string
	Scale        float64
	ShowTitle    bool
	ShowSchedule bool
	Shadow       bool
}

func DefaultOptions() Options {
	return Options{
		Theme:        theme.NameDark,
		Scale:        1,
		ShowTitle:    true,
		ShowSchedule: true,
	}
}

// ParseOptions reads theme, scale, title, schedule and shadow. Unknown or
// malformed values keep their defaults.
func ParseOptions(values url.Values) Options {
	opts := DefaultOptions()

	if raw := strings.ToLower(strings.TrimSpace(values.Get("theme"))); raw == theme.NameDark || raw == theme.NameLight {
		opts.Theme = raw
	}
	if raw := values.Get("scale"); raw != "" {
		if scale, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(scale) && !math.IsInf(scale, 0) {
			opts.Scale = math.Min(maxScale, math.Max(minScale, scale))
		}
	}
	opts.ShowTitle = flag(values, "title", opts.ShowTitle)
	opts.ShowSchedule = flag(values, "schedule", opts.ShowSchedule)
	opts.Shadow = flag(values, "shadow", opts.Shadow)
	return opts
}

func flag(values url.Values, key string, fallback bool) bool {
	if !values.Has(key) {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(values.Get(key))) {
	case "1", "true", "on", "yes", "":
		return true
	case "0", "false", "off", "no":
		return false
	default:
		return fallback
	}
}
