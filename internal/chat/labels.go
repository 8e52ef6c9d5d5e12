package chat

import "time"

const (
	dateLayout = "Jan 2, 2006"
	timeLayout = "15:04"
)

func inLoc(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc)
}

// FormatDate renders the calendar date of t in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return inLoc(t, loc).Format(dateLayout)
}

// FormatTime renders the wall-clock time of t in loc.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return inLoc(t, loc).Format(timeLayout)
}

// IsSameDay reports whether a and b fall on the same calendar day in loc.
func IsSameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := inLoc(a, loc).Date()
	by, bm, bd := inLoc(b, loc).Date()
	return ay == by && am == bm && ad == bd
}

func isYesterday(t, now time.Time, loc *time.Location) bool {
	n := inLoc(now, loc)
	y, m, d := n.Date()
	return IsSameDay(t, time.Date(y, m, d-1, 12, 0, 0, 0, n.Location()), loc)
}

// DayLabel is the date separator text: "Today", "Yesterday" or the date.
func DayLabel(t, now time.Time, loc *time.Location) string {
	switch {
	case IsSameDay(t, now, loc):
		return "Today"
	case isYesterday(t, now, loc):
		return "Yesterday"
	default:
		return FormatDate(t, loc)
	}
}

// PreviewLabel is the last-activity label of a contact: the time for today,
// "Yesterday", otherwise the date. Zero times yield "".
func PreviewLabel(t, now time.Time, loc *time.Location) string {
	switch {
	case t.IsZero():
		return ""
	case IsSameDay(t, now, loc):
		return FormatTime(t, loc)
	case isYesterday(t, now, loc):
		return "Yesterday"
	default:
		return FormatDate(t, loc)
	}
}
