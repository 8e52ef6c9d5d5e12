package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/schoolchat/internal/chat"
	"github.com/matheus3301/schoolchat/internal/tui/model"
	"github.com/matheus3301/schoolchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactList is the contact table: principal first, then parents, then
// groups and any thread-only contacts.
type ContactList struct {
	*tview.Table
	theme    *ui.Theme
	snap     chat.Snapshot
	rows     []model.ContactRow
	filter   string
	onSelect func(contactID string)
}

// NewContactList creates the contact table.
func NewContactList(theme *ui.Theme) *ContactList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.Cursor.Fg).
		Background(theme.Cursor.Bg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ContactList{
		Table: table,
		theme: theme,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if id := cl.contactAt(row); id != "" && cl.onSelect != nil {
			cl.onSelect(id)
		}
	})
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ContactList) Name() string { return "Contacts" }

// Hints implements ui.Component.
func (cl *ContactList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "r", Description: "Reload"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// SetOnSelect sets the callback run when a contact is chosen.
func (cl *ContactList) SetOnSelect(fn func(contactID string)) {
	cl.onSelect = fn
}

// Update redraws the table from a session snapshot, keeping the cursor on
// the same contact when it is still listed.
func (cl *ContactList) Update(snap chat.Snapshot) {
	selected := cl.SelectedContact()
	cl.snap = snap
	cl.render()
	cl.selectContact(selected)
}

// SetFilter narrows the table to contacts matching text.
func (cl *ContactList) SetFilter(text string) {
	cl.filter = text
	cl.render()
}

// Filter returns the active filter text.
func (cl *ContactList) Filter() string { return cl.filter }

// SelectedContact returns the id of the contact under the cursor.
func (cl *ContactList) SelectedContact() string {
	row, _ := cl.GetSelection()
	return cl.contactAt(row)
}

func (cl *ContactList) contactAt(row int) string {
	idx := row - 1 // header
	if idx < 0 || idx >= len(cl.rows) {
		return ""
	}
	return cl.rows[idx].ID
}

func (cl *ContactList) selectContact(id string) {
	for i, r := range cl.rows {
		if r.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(cl.rows) > 0 {
		cl.Select(1, 0)
	}
}

func (cl *ContactList) render() {
	cl.Clear()
	cl.rows = model.ContactRows(cl.snap, cl.filter)

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" DETAIL", 1},
		{" LAST MESSAGE", 2},
		{" WHEN", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.Header.Fg).
			SetBackgroundColor(cl.theme.Header.Bg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	for i, r := range cl.rows {
		row := i + 1
		name := clean(r.Name, true)
		color := cl.theme.KindColor(string(r.Role))
		if r.Unread > 0 {
			name = "(" + strconv.Itoa(r.Unread) + ") " + name
			color = cl.theme.UnreadColor
		}
		if r.Active {
			name = "▶ " + name
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+name).SetExpansion(1).SetTextColor(color))
		cl.SetCell(row, 1, tview.NewTableCell(" "+clean(r.Detail, true)).SetExpansion(1).SetMaxWidth(36).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+clean(r.Preview, true)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(" "+r.When).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 4, tview.NewTableCell(" "+r.Kind).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
	}

	title := fmt.Sprintf(" Contacts (%d) ", len(cl.snap.Contacts))
	if cl.filter != "" {
		title = fmt.Sprintf(" Contacts (%d/%d) filter: %s ", len(cl.rows), len(cl.snap.Contacts), tview.Escape(cl.filter))
	}
	if cl.snap.Loading {
		title += "(loading) "
	}
	cl.SetTitle(title)
}
