package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what the prompt edits.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historyLimit = 50

var promptLabels = map[PromptMode]struct{ label, title string }{
	PromptCommand: {":", " Command "},
	PromptFilter:  {"/", " Filter "},
}

// Prompt is the bottom input bar shared by commands and the contact filter.
// Submitted commands are kept in a history recalled with Up and Down.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	history  []string
	cursor   int
	onSubmit func(mode PromptMode, text string)
	onChange func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates the input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input}
	input.SetChangedFunc(func(text string) {
		if p.onChange != nil {
			p.onChange(p.mode, text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			p.submit(p.GetText())
		case tcell.KeyEscape:
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyUp:
			p.recall(-1)
			return nil
		case tcell.KeyDown:
			p.recall(1)
			return nil
		}
		return ev
	})
	return p
}

// SetOnSubmit sets the callback run on Enter.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }

// SetOnChange sets the callback run on every edit. Filters apply live.
func (p *Prompt) SetOnChange(fn func(mode PromptMode, text string)) { p.onChange = fn }

// SetOnCancel sets the callback run on Escape.
func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }

// Activate clears the prompt and switches it to mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	l := promptLabels[mode]
	p.SetLabel(l.label)
	p.SetTitle(l.title)
	p.cursor = len(p.history)
	p.SetText("")
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode { return p.mode }

// History returns submitted commands, oldest first.
func (p *Prompt) History() []string { return p.history }

func (p *Prompt) submit(text string) {
	if p.mode == PromptCommand && text != "" {
		if n := len(p.history); n == 0 || p.history[n-1] != text {
			p.history = append(p.history, text)
			if len(p.history) > historyLimit {
				p.history = p.history[len(p.history)-historyLimit:]
			}
		}
		p.cursor = len(p.history)
	}
	if p.onSubmit != nil {
		p.onSubmit(p.mode, text)
	}
}

// recall moves through the history by delta. Stepping past the newest
// entry clears the field.
func (p *Prompt) recall(delta int) {
	if len(p.history) == 0 {
		return
	}
	p.cursor = max(0, min(len(p.history), p.cursor+delta))
	if p.cursor == len(p.history) {
		p.SetText("")
		return
	}
	p.SetText(p.history[p.cursor])
}
