package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/lifecycle"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/tui/ui"
)

const (
	busyLabel = "updating..."
	doneLabel = "delivered"
)

// OrdersView is the driver's order table.
type OrdersView struct {
	*tview.Table
	hooks
	theme   *ui.Theme
	view    orders.View
	visible []orders.Item
	filter  string
}

// NewOrdersView creates the order table.
func NewOrdersView(theme *ui.Theme) *OrdersView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Orders ")
	table.SetTitleColor(theme.TitleColor)

	ov := &OrdersView{
		Table: table,
		theme: theme,
	}
	ov.render()
	return ov
}

// Name implements ui.Component.
func (ov *OrdersView) Name() string { return "Orders" }

// Update replaces the rows, keeping the cursor on the same order when it is
// still listed.
func (ov *OrdersView) Update(view orders.View) {
	selected, hadSelection := ov.Selected()
	ov.view = view
	ov.render()
	if hadSelection {
		for i, it := range ov.visible {
			if it.Order.ID == selected.Order.ID {
				ov.Select(i+1, 0)
				return
			}
		}
	}
}

// ScrollTop moves the cursor to the first order.
func (ov *OrdersView) ScrollTop() {
	ov.ScrollToBeginning()
	if len(ov.visible) > 0 {
		ov.Select(1, 0)
	}
}

// SetFilter shows only orders whose id, customer, status or address
// contains filter. An empty filter shows all.
func (ov *OrdersView) SetFilter(filter string) {
	ov.filter = filter
	ov.render()
	ov.ScrollTop()
}

// Selected returns the order under the cursor.
func (ov *OrdersView) Selected() (orders.Item, bool) {
	row, _ := ov.GetSelection()
	if row < 1 || row > len(ov.visible) {
		return orders.Item{}, false
	}
	return ov.visible[row-1], true
}

// Visible returns the rows currently listed.
func (ov *OrdersView) Visible() []orders.Item {
	return ov.visible
}

func (ov *OrdersView) render() {
	ov.Clear()
	ov.visible = filterOrders(ov.view.Items, ov.filter)

	headers := []struct {
		text string
		exp  int
	}{
		{" ID", 0},
		{" STATUS", 0},
		{" CUSTOMER", 1},
		{" SLOT", 0},
		{" ADDRESS", 2},
		{" ACTION", 0},
	}
	for col, h := range headers {
		ov.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(ov.theme.TableHeaderFg).
			SetBackgroundColor(ov.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	for i, it := range ov.visible {
		row := i + 1
		o := it.Order
		action, actionColor := actionText(it), ov.theme.FgColor
		switch {
		case it.Busy:
			actionColor = ov.theme.BusyColor
		case lifecycle.Terminal(o.DriverStatus):
			actionColor = ov.theme.StatusColor(o.DriverStatus)
		}
		cells := []*tview.TableCell{
			tview.NewTableCell(" " + o.ID.String()).SetTextColor(ov.theme.CounterColor),
			tview.NewTableCell(" " + o.DriverStatus).SetTextColor(ov.theme.StatusColor(o.DriverStatus)),
			tview.NewTableCell(" " + sanitizeForTerminal(orDash(o.CustomerName))).SetTextColor(ov.theme.FgColor).SetExpansion(1),
			tview.NewTableCell(" " + orDash(o.TimeSlot)).SetTextColor(ov.theme.FgColor),
			tview.NewTableCell(" " + orDash(addressLine(o))).SetTextColor(ov.theme.FgColor).SetExpansion(2),
			tview.NewTableCell(" " + action).SetTextColor(actionColor),
		}
		for col, c := range cells {
			ov.SetCell(row, col, c)
		}
	}

	title := countTitle("Orders", len(ov.view.Items))
	switch {
	case !ov.view.Loaded:
		title = " Orders [loading] "
	case ov.filter != "":
		title = countTitle("Orders /"+tview.Escape(ov.filter), len(ov.visible))
	}
	ov.SetTitle(title)
}

// actionText is the busy marker, the next action label, the done marker
// for a delivered order, or empty for unknown statuses.
func actionText(it orders.Item) string {
	switch {
	case it.Busy:
		return busyLabel
	case lifecycle.Terminal(it.Order.DriverStatus):
		return doneLabel
	}
	return it.Action
}

func filterOrders(items []orders.Item, filter string) []orders.Item {
	if filter == "" {
		return items
	}
	var out []orders.Item
	for _, it := range items {
		o := it.Order
		if containsFold(o.ID.String(), filter) || containsFold(o.CustomerName, filter) ||
			containsFold(o.DriverStatus, filter) || containsFold(addressLine(o), filter) {
			out = append(out, it)
		}
	}
	return out
}

// OrderByID finds an order among the listed rows.
func (ov *OrdersView) OrderByID(id domain.ID) (orders.Item, bool) {
	return ov.view.Find(id)
}
