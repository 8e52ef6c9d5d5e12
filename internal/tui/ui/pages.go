package ui

import "github.com/rivo/tview"

// Page is a component that can be laid out by tview.
type Page interface {
	Component
	tview.Primitive
}

// Pages is a stack of named pages on top of tview.Pages. Each page is
// registered once and pushed by its id; the top of the stack is the only
// visible page.
type Pages struct {
	*tview.Pages
	pages    map[string]Page
	stack    []string
	onChange func(top Page, trail []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
		pages: make(map[string]Page),
	}
}

// Register adds a hidden page under id.
func (p *Pages) Register(id string, page Page) {
	p.pages[id] = page
	p.AddPage(id, page, true, false)
}

// SetOnChange sets a callback fired with the new top page and the
// breadcrumb trail (page names, bottom first) whenever the stack changes.
func (p *Pages) SetOnChange(fn func(top Page, trail []string)) {
	p.onChange = fn
}

// Push shows id on top of the stack. Pushing the current top is a no-op;
// pushing a page already lower in the stack pops back to it.
func (p *Pages) Push(id string) {
	if _, ok := p.pages[id]; !ok {
		return
	}
	for i, s := range p.stack {
		if s == id {
			p.stack = p.stack[:i+1]
			p.show()
			return
		}
	}
	p.stack = append(p.stack, id)
	p.show()
}

// Pop removes the top page unless it is the last one. It returns the id of
// the popped page, or "" when nothing was popped.
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.show()
	return top
}

// Reset makes id the only page on the stack.
func (p *Pages) Reset(id string) {
	if _, ok := p.pages[id]; !ok {
		return
	}
	p.stack = []string{id}
	p.show()
}

// Current returns the id of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Top returns the top page, or nil when the stack is empty.
func (p *Pages) Top() Page {
	return p.pages[p.Current()]
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Trail returns the names of the stacked pages, bottom first.
func (p *Pages) Trail() []string {
	out := make([]string, len(p.stack))
	for i, id := range p.stack {
		out[i] = p.pages[id].Name()
	}
	return out
}

func (p *Pages) show() {
	top := p.Current()
	for id := range p.pages {
		if id != top {
			p.HidePage(id)
		}
	}
	p.ShowPage(top)
	p.SendToFront(top)
	if p.onChange != nil {
		p.onChange(p.Top(), p.Trail())
	}
}
