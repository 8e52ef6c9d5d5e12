package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData holds the header information.
type ProfileData struct {
	Profile  string
	User     string
	Role     string
	Link     string
	LinkUp   bool
	Contacts int
	Unread   int
	Loading  bool
}

// ProfileInfo displays who is signed in and the realtime link state.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new header panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data.
func (pi *ProfileInfo) Update(data ProfileData) {
	pi.Clear()

	fg := ColorTag(pi.theme.FgColor)
	val := ColorTag(pi.theme.CounterColor)
	link := ColorTag(pi.theme.LinkDownColor)
	if data.LinkUp {
		link = ColorTag(pi.theme.LinkUpColor)
	}
	user := data.User
	if user == "" {
		user = "(signed out)"
	}
	if data.Role != "" {
		user += " · " + data.Role
	}
	contacts := fmt.Sprintf("%d", data.Contacts)
	if data.Loading {
		contacts += " (loading)"
	}

	_, _ = fmt.Fprintf(pi,
		"[%s::b]Profile:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Live:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Contacts:[-:-:-] [%s]%s[-]  [%s::b]Unread:[-:-:-] [%s]%d[-]",
		fg, val, tview.Escape(data.Profile),
		fg, val, tview.Escape(user),
		fg, link, data.Link,
		fg, val, contacts, fg, ColorTag(pi.theme.UnreadColor), data.Unread,
	)
}
