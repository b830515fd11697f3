package ui

import "github.com/rivo/tview"

// Component is a page of the TUI. Start runs when the page comes to the
// front and Stop when it leaves, so a page only holds its watch stream
// while it is on screen.
type Component interface {
	tview.Primitive
	Name() string
	Start()
	Stop()
}
