package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// Default lifetimes per level.
const (
	infoTTL = 4 * time.Second
	warnTTL = 8 * time.Second
	errTTL  = 10 * time.Second
)

// FlashMessage is a transient notification.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the current notification. The newest message replaces
// the previous one.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// NewFlashModel creates a flash model; now defaults to time.Now.
func NewFlashModel(now func() time.Time) *FlashModel {
	if now == nil {
		now = time.Now
	}
	return &FlashModel{now: now}
}

// Info shows an informational message.
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo, infoTTL) }

// Warn shows a warning.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn, warnTTL) }

// Err shows an error.
func (f *FlashModel) Err(err error) { f.set(err.Error(), FlashErr, errTTL) }

func (f *FlashModel) set(msg string, level FlashLevel, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.now().Add(d)}
}

// Current returns the live message, or nil once it expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders msg, or clears the bar when msg is nil.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}
	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case FlashWarn:
		color = fb.theme.FlashWarnColor
	case FlashErr:
		color = fb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", ColorTag(color), tview.Escape(msg.Text))
}
