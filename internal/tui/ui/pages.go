package ui

import "github.com/rivo/tview"

// Pages is a stack of components wrapping tview.Pages. Only the top
// component is started; pushing over it or popping it stops it.
type Pages struct {
	*tview.Pages
	components map[string]Component
	stack      []string
	onChange   func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages:      tview.NewPages(),
		components: make(map[string]Component),
	}
}

// Add registers c, hidden, under its name.
func (p *Pages) Add(c Component) {
	p.components[c.Name()] = c
	p.AddPage(c.Name(), c, true, false)
}

// Component returns the component registered under name.
func (p *Pages) Component(name string) (Component, bool) {
	c, ok := p.components[name]
	return c, ok
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push stops the current page and shows and starts name. Pushing the page
// already on top restarts it.
func (p *Pages) Push(name string) {
	if top := p.Current(); top != "" {
		p.hide(top)
	}
	p.stack = append(p.stack, name)
	p.show(name)
	p.notify()
}

// Pop stops the top page and restarts the one below it. The last page is
// never popped. Returns the name of the popped page, or empty.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.hide(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.Current())
	p.notify()
	return top
}

// Current returns the name of the current (top) page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Reset stops the current page, clears the stack and shows only name.
func (p *Pages) Reset(name string) {
	if top := p.Current(); top != "" {
		p.hide(top)
	}
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.show(name)
	p.notify()
}

// StopAll stops the top page, used on exit.
func (p *Pages) StopAll() {
	if top := p.Current(); top != "" {
		p.hide(top)
	}
}

func (p *Pages) show(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
	if c, ok := p.components[name]; ok {
		c.Start()
	}
}

func (p *Pages) hide(name string) {
	if c, ok := p.components[name]; ok {
		c.Stop()
	}
	p.HidePage(name)
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
