package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/tui/ui"
)

// NotificationsView lists the driver's notifications.
type NotificationsView struct {
	*tview.Table
	hooks
	theme *ui.Theme
}

// NewNotificationsView creates the notification table.
func NewNotificationsView(theme *ui.Theme) *NotificationsView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Notifications [loading] ")
	table.SetTitleColor(theme.TitleColor)

	return &NotificationsView{
		Table: table,
		theme: theme,
	}
}

// Name implements ui.Component.
func (nv *NotificationsView) Name() string { return "Notifications" }

// Update replaces the rows.
func (nv *NotificationsView) Update(view notifications.View) {
	nv.Clear()
	for col, h := range []string{" TITLE", " MESSAGE", " RECEIVED"} {
		exp := 0
		if col == 1 {
			exp = 1
		}
		nv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(nv.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(exp))
	}
	for i, n := range view.Items {
		nv.SetCell(i+1, 0, tview.NewTableCell(" "+sanitizeForTerminal(orDash(n.Title))).SetTextColor(nv.theme.CounterColor))
		nv.SetCell(i+1, 1, tview.NewTableCell(" "+sanitizeForTerminal(n.Body)).SetTextColor(nv.theme.FgColor).SetExpansion(1))
		nv.SetCell(i+1, 2, tview.NewTableCell(" "+orDash(n.CreatedAt)).SetTextColor(nv.theme.FgColor))
	}
	if !view.Loaded {
		nv.SetTitle(" Notifications [loading] ")
		return
	}
	nv.SetTitle(countTitle("Notifications", len(view.Items)))
}
