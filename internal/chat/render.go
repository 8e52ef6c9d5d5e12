package chat

import (
	"slices"
	"time"
)

// RowKind distinguishes rendered rows.
type RowKind int

const (
	RowMessage RowKind = iota
	RowSeparator
)

// Row is one line of a rendered thread: a message or a day separator.
type Row struct {
	Kind    RowKind
	Label   string
	Message Message
}

// Render sorts msgs by CreatedAt (id tie-break) and inserts a day separator
// before every message whose calendar day differs from the previous one.
// The first message gets none.
func Render(msgs []Message, now time.Time, loc *time.Location) []Row {
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, compareMessages)

	rows := make([]Row, 0, len(sorted))
	for i, m := range sorted {
		if i > 0 && !IsSameDay(sorted[i-1].CreatedAt, m.CreatedAt, loc) {
			rows = append(rows, Row{Kind: RowSeparator, Label: DayLabel(m.CreatedAt, now, loc)})
		}
		rows = append(rows, Row{Kind: RowMessage, Message: m})
	}
	return rows
}
