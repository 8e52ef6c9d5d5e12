package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/schoolchat/internal/tui/model"
	"github.com/matheus3301/schoolchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ThreadView displays the open thread with day separators and a composer.
type ThreadView struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	title    string
	readOnly bool
	onSend   func(text string)
	onDraft  func(text string)
}

// NewThreadView creates a new thread view.
func NewThreadView(theme *ui.Theme) *ThreadView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	tv := &ThreadView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if tv.onDraft != nil {
			tv.onDraft(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || tv.onSend == nil {
			return
		}
		text := composer.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		// The session clears the draft on success and restores it on
		// failure, so the field is emptied optimistically here.
		composer.SetText("")
		tv.onSend(text)
	})
	tv.SetTitle("Messages")
	return tv
}

// Name implements ui.Component.
func (tv *ThreadView) Name() string { return tv.title }

// Hints implements ui.Component.
func (tv *ThreadView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "Enter", Description: "Send"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// SetTitle names the thread pane.
func (tv *ThreadView) SetTitle(title string) {
	tv.title = title
	tv.messages.SetTitle(" " + tview.Escape(title) + " ")
}

// SetReadOnly disables the composer, e.g. when no credentials are loaded.
func (tv *ThreadView) SetReadOnly(readOnly bool) {
	tv.readOnly = readOnly
	tv.composer.SetDisabled(readOnly)
	if readOnly {
		tv.composer.SetTitle(" Read only: sign in to send ")
	} else {
		tv.composer.SetTitle(" Compose (i to focus) ")
	}
}

// ReadOnly reports whether sending is disabled.
func (tv *ThreadView) ReadOnly() bool { return tv.readOnly }

// SetOnSend sets the callback run with the composer text on Enter.
func (tv *ThreadView) SetOnSend(fn func(text string)) { tv.onSend = fn }

// SetOnDraft sets the callback run on every composer edit.
func (tv *ThreadView) SetOnDraft(fn func(text string)) { tv.onDraft = fn }

// SetDraft replaces the composer text without triggering the draft callback.
func (tv *ThreadView) SetDraft(text string) {
	fn := tv.onDraft
	tv.onDraft = nil
	tv.composer.SetText(text)
	tv.onDraft = fn
}

// Update redraws the message pane. hint is shown when lines is empty.
func (tv *ThreadView) Update(lines []model.Line, hint string) {
	tv.messages.Clear()
	if len(lines) == 0 {
		if hint != "" {
			_, _ = fmt.Fprintf(tv.messages, "\n  [%s]%s[-]", ui.ColorTag(tv.theme.SeparatorColor), tview.Escape(hint))
		}
		return
	}

	sep := ui.ColorTag(tv.theme.SeparatorColor)
	own := ui.ColorTag(tv.theme.OwnMessageColor)
	peer := ui.ColorTag(tv.theme.PeerMessageColor)
	for _, l := range lines {
		if l.Separator {
			_, _ = fmt.Fprintf(tv.messages, "[%s]──── %s ────[-]\n\n", sep, tview.Escape(l.Label))
			continue
		}
		color := peer
		if l.Own {
			color = own
		}
		_, _ = fmt.Fprintf(tv.messages, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			color, clean(l.Sender, true), l.Time, clean(l.Text, false))
	}
	tv.messages.ScrollToEnd()
}

// Messages returns the message pane (for focus management).
func (tv *ThreadView) Messages() *tview.TextView { return tv.messages }

// Composer returns the composer input field (for focus management).
func (tv *ThreadView) Composer() *tview.InputField { return tv.composer }
