package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Pair is a foreground/background combination.
type Pair struct {
	Fg tcell.Color
	Bg tcell.Color
}

// Theme holds the TUI palette.
type Theme struct {
	BgColor     tcell.Color
	FgColor     tcell.Color
	BorderColor tcell.Color
	TitleColor  tcell.Color

	Header        Pair
	Cursor        Pair
	CrumbActive   Pair
	CrumbInactive Pair

	MenuKeyColor      tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	// Contact list.
	UnreadColor tcell.Color
	KindColors  map[string]tcell.Color

	// Thread.
	OwnMessageColor  tcell.Color
	PeerMessageColor tcell.Color
	SeparatorColor   tcell.Color

	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color

	LinkUpColor   tcell.Color
	LinkDownColor tcell.Color
}

// DefaultTheme returns a dark theme with the school's accent colors.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:     tcell.ColorBlack,
		FgColor:     tcell.ColorCadetBlue,
		BorderColor: tcell.ColorDodgerBlue,
		TitleColor:  tcell.ColorFuchsia,

		Header:        Pair{Fg: tcell.ColorWhite, Bg: tcell.ColorBlack},
		Cursor:        Pair{Fg: tcell.ColorBlack, Bg: tcell.ColorAqua},
		CrumbActive:   Pair{Fg: tcell.ColorBlack, Bg: tcell.ColorOrange},
		CrumbInactive: Pair{Fg: tcell.ColorBlack, Bg: tcell.ColorAqua},

		MenuKeyColor:      tcell.ColorDodgerBlue,
		CounterColor:      tcell.ColorPapayaWhip,
		PromptBorderColor: tcell.ColorDodgerBlue,

		UnreadColor: tcell.ColorGold,
		KindColors: map[string]tcell.Color{
			"principal": tcell.ColorOrange,
			"parent":    tcell.ColorCadetBlue,
			"teacher":   tcell.ColorMediumPurple,
			"group":     tcell.ColorLightSeaGreen,
		},

		OwnMessageColor:  tcell.ColorMediumSpringGreen,
		PeerMessageColor: tcell.ColorLightSkyBlue,
		SeparatorColor:   tcell.ColorGray,

		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashWarnColor: tcell.ColorOrange,
		FlashErrColor:  tcell.ColorOrangeRed,

		LinkUpColor:   tcell.ColorGreen,
		LinkDownColor: tcell.ColorOrangeRed,
	}
}

// KindColor returns the name color for a contact kind, FgColor when the
// kind has none.
func (t *Theme) KindColor(kind string) tcell.Color {
	if c, ok := t.KindColors[kind]; ok {
		return c
	}
	return t.FgColor
}

// ColorTag returns c as a tview color tag value, e.g. "#1e90ff". The
// default color maps to "-", which resets the tag.
func ColorTag(c tcell.Color) string {
	h := c.Hex()
	if h < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", h)
}
