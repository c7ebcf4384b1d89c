package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	NameDark  = "dark"
	NameLight = "light"
)

type Palette struct {
	Base    lipgloss.Color
	Surface lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Good    lipgloss.Color
	Warn    lipgloss.Color
	Danger  lipgloss.Color
}

var (
	Dark = Palette{
		Base:    lipgloss.Color("#1e1e2e"),
		Surface: lipgloss.Color("#45475a"),
		Text:    lipgloss.Color("#cdd6f4"),
		Muted:   lipgloss.Color("#a6adc8"),
		Accent:  lipgloss.Color("#74c7ec"),
		Good:    lipgloss.Color("#a6e3a1"),
		Warn:    lipgloss.Color("#fab387"),
		Danger:  lipgloss.Color("#f38ba8"),
	}

	Light = Palette{
		Base:    lipgloss.Color("#eff1f5"),
		Surface: lipgloss.Color("#bcc0cc"),
		Text:    lipgloss.Color("#4c4f69"),
		Muted:   lipgloss.Color("#6c6f85"),
		Accent:  lipgloss.Color("#1e66f5"),
		Good:    lipgloss.Color("#40a02b"),
		Warn:    lipgloss.Color("#fe640b"),
		Danger:  lipgloss.Color("#d20f39"),
	}
)

// Styles are the lipgloss styles shared by the display and control surfaces.
type Styles struct {
	Name    string
	Palette Palette

	App      lipgloss.Style
	Pane     lipgloss.Style
	Title    lipgloss.Style
	Clock    lipgloss.Style
	Muted    lipgloss.Style
	Hot      lipgloss.Style
	Error    lipgloss.Style
	Selected lipgloss.Style
	Shadow   lipgloss.Style
	Done     lipgloss.Style
}

// For returns the styles for name, falling back to dark.
func For(name string) Styles {
	if strings.EqualFold(strings.TrimSpace(name), NameLight) {
		return build(NameLight, Light)
	}
	return build(NameDark, Dark)
}

func build(name string, p Palette) Styles {
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface).
		Foreground(p.Text).
		Padding(0, 1)

	return Styles{
		Name:    name,
		Palette: p,
		App: lipgloss.NewStyle().
			Background(p.Base).
			Foreground(p.Text).
			Padding(1, 2),
		Pane:     pane,
		Title:    lipgloss.NewStyle().Foreground(p.Accent).Bold(true),
		Clock:    lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(p.Muted),
		Hot:      lipgloss.NewStyle().Foreground(p.Warn).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(p.Danger),
		Selected: lipgloss.NewStyle().Foreground(p.Base).Background(p.Accent),
		Shadow:   lipgloss.NewStyle().Foreground(p.Surface),
		Done:     lipgloss.NewStyle().Foreground(p.Good),
	}
}
