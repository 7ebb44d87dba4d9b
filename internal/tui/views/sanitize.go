package views

import "strings"

// sanitizeForTerminal drops codepoints tview cannot lay out in a fixed cell
// grid: skin tone modifiers, zero width joiners and variation selectors. A
// composed emoji degrades to its base glyph.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if invisibleModifier(r) {
			return -1
		}
		return r
	}, s)
}

func invisibleModifier(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	}
	return false
}
