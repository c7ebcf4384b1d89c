package display

import "strings"

const glyphHeight = 5

var glyphs = map[rune][glyphHeight]string{
	'0': {"███", "█ █", "█ █", "█ █", "███"},
	'1': {" █ ", "██ ", " █ ", " █ ", "███"},
	'2': {"███", "  █", "███", "█  ", "███"},
	'3': {"███", "  █", "███", "  █", "███"},
	'4': {"█ █", "█ █", "███", "  █", "  █"},
	'5': {"███", "█  ", "███", "  █", "███"},
	'6': {"███", "█  ", "███", "█ █", "███"},
	'7': {"███", "  █", "  █", "  █", "  █"},
	'8': {"███", "█ █", "███", "█ █", "███"},
	'9': {"███", "█ █", "███", "  █", "███"},
	':': {" ", "█", " ", "█", " "},
}

// bigText renders text in block glyphs, each column repeated width times.
// Characters without a glyph are skipped.
func bigText(text string, width int) string {
	if width < 1 {
		width = 1
	}
	var rows [glyphHeight]strings.Builder
	first := true
	for _, r := range text {
		glyph, ok := glyphs[r]
		if !ok {
			continue
		}
		for row := 0; row < glyphHeight; row++ {
			if !first {
				rows[row].WriteString(strings.Repeat(" ", width))
			}
			for _, cell := range glyph[row] {
				rows[row].WriteString(strings.Repeat(string(cell), width))
			}
		}
		first = false
	}

	lines := make([]string, glyphHeight)
	for i := range rows {
		lines[i] = rows[i].String()
	}
	return strings.Join(lines, "\n")
}
