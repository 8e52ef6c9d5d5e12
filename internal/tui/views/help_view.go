package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/schoolchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding and command reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	_, _ = fmt.Fprint(tv, helpText(ui.ColorTag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

type helpEntry struct{ key, what string }

var helpSections = []struct {
	title   string
	entries []helpEntry
}{
	{"Global", []helpEntry{
		{":", "Command mode"},
		{"?", "This help"},
		{"Esc", "Go back"},
		{"q", "Quit"},
	}},
	{"Contacts", []helpEntry{
		{"Enter", "Open conversation"},
		{"/", "Filter by name, student or message"},
		{"r", "Reload contacts and threads"},
	}},
	{"Conversation", []helpEntry{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"Esc", "Leave composer"},
	}},
	{"Commands", []helpEntry{
		{":open <contact-id>", "Open a contact by id"},
		{":reload", "Reload contacts and threads"},
		{":help", "This help"},
		{":quit", "Quit"},
	}},
}

func helpText(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			fmt.Fprintf(&b, "  [%s]%-20s[-:-:-] %s\n", keyColor, tview.Escape(e.key), e.what)
		}
	}
	return b.String()
}
