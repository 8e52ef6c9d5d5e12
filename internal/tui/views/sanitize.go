package views

import (
	"strings"

	"github.com/rivo/tview"
)

// clean prepares user text for a tview cell: code points tcell renders
// with the wrong width are dropped, newlines are flattened when oneLine is
// set, and style tags are escaped.
func clean(s string, oneLine bool) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
			return -1
		case r == 0x200D: // zero width joiner
			return -1
		case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
			return -1
		case oneLine && (r == '\n' || r == '\r' || r == '\t'):
			return ' '
		}
		return r
	}, s)
	return tview.Escape(s)
}
