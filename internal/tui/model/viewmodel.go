// Package model turns chat session snapshots into display-ready values.
// Nothing here touches tview, so it is tested without a terminal.
package model

import (
	"strings"
	"time"

	"github.com/matheus3301/schoolchat/internal/chat"
)

// ContactRow is one line of the contact table.
type ContactRow struct {
	ID      string
	Name    string
	Kind    string
	Role    chat.Kind
	Detail  string
	Preview string
	When    string
	Unread  int
	Active  bool
}

// ContactRows lists the contacts matching filter, in directory order. The
// filter matches name, detail and preview, case-insensitively.
func ContactRows(snap chat.Snapshot, filter string) []ContactRow {
	filter = strings.ToLower(strings.TrimSpace(filter))
	activeID := ""
	if snap.Active != nil {
		activeID = snap.Active.ID
	}
	rows := make([]ContactRow, 0, len(snap.Contacts))
	for _, c := range snap.Contacts {
		r := ContactRow{
			ID:      c.ID,
			Name:    c.DisplayName,
			Kind:    KindLabel(c.Kind),
			Role:    c.Kind,
			Detail:  c.Subtitle(),
			Preview: c.LastMessagePreview,
			When:    c.LastMessageLabel,
			Unread:  c.UnreadCount,
			Active:  c.ID == activeID,
		}
		if r.Name == "" {
			r.Name = c.ID
		}
		if filter != "" && !matches(filter, r.Name, r.Detail, r.Preview) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func matches(filter string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), filter) {
			return true
		}
	}
	return false
}

// KindLabel is the short tag shown in the TYPE column.
func KindLabel(k chat.Kind) string {
	switch k {
	case chat.KindParent:
		return "PARENT"
	case chat.KindPrincipal:
		return "PRINCIPAL"
	case chat.KindTeacher:
		return "TEACHER"
	case chat.KindGroup:
		return "GROUP"
	default:
		return strings.ToUpper(string(k))
	}
}

// UnreadTotal sums the unread counters of all contacts.
func UnreadTotal(contacts []chat.Contact) int {
	n := 0
	for _, c := range contacts {
		n += c.UnreadCount
	}
	return n
}

// Line is one rendered row of the open thread.
type Line struct {
	Separator bool
	Label     string
	Sender    string
	Time      string
	Text      string
	Own       bool
}

// ThreadLines renders rows for display. Own messages are attributed to "You".
func ThreadLines(rows []chat.Row, loc *time.Location) []Line {
	out := make([]Line, 0, len(rows))
	for _, r := range rows {
		if r.Kind == chat.RowSeparator {
			out = append(out, Line{Separator: true, Label: r.Label})
			continue
		}
		m := r.Message
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.IsOwn {
			sender = "You"
		}
		out = append(out, Line{
			Sender: sender,
			Time:   chat.FormatTime(m.CreatedAt, loc),
			Text:   m.Content,
			Own:    m.IsOwn,
		})
	}
	return out
}

// ThreadTitle names the thread pane for the current selection state.
func ThreadTitle(snap chat.Snapshot) string {
	switch {
	case snap.Active != nil:
		return snap.Active.DisplayName
	case snap.Pending == chat.PendingUnresolvable:
		return "Contact not found"
	case snap.Resolving:
		return "Opening…"
	default:
		return "Messages"
	}
}

// EmptyThreadHint is shown when the open thread has no messages yet.
func EmptyThreadHint(snap chat.Snapshot) string {
	switch {
	case snap.Active == nil:
		return ""
	case snap.ThreadID == "":
		return "No conversation yet. Your first message starts one."
	default:
		return "No messages yet."
	}
}
