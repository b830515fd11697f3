package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/lifecycle"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/rpc"
)

func printStatus(w io.Writer, s *rpc.StatusResponse) {
	driver := "-"
	if s.Driver != nil {
		driver = fmt.Sprintf("%s (%s)", orDash(s.Driver.Name), s.Driver.DriverID)
	}
	fmt.Fprintf(w, "Session: %s\n", s.Session)
	fmt.Fprintf(w, "Status:  %s\n", s.Status)
	fmt.Fprintf(w, "Driver:  %s\n", driver)
	fmt.Fprintf(w, "Backend: %s\n", s.BaseURL)
	fmt.Fprintf(w, "PID:     %d\n", s.PID)
	fmt.Fprintf(w, "Uptime:  %s\n", (time.Duration(s.UptimeMs) * time.Millisecond).Round(time.Second))
}

func printOrders(w io.Writer, view *orders.View) error {
	if len(view.Items) == 0 {
		_, err := fmt.Fprintln(w, "No orders.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTEP\tCUSTOMER\tSLOT\tACTION")
	for _, it := range view.Items {
		action := it.Action
		switch {
		case it.Busy:
			action = "(updating)"
		case lifecycle.Terminal(it.Order.DriverStatus):
			action = "(delivered)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Order.ID, it.Order.DriverStatus, step(it.Order.DriverStatus),
			orDash(it.Order.CustomerName), orDash(it.Order.TimeSlot), orDash(action))
	}
	return tw.Flush()
}

// step renders how far status is along the lifecycle, e.g. "3/6".
func step(status string) string {
	seq := lifecycle.Sequence()
	for i, s := range seq {
		if s == status {
			return fmt.Sprintf("%d/%d", i+1, len(seq))
		}
	}
	return "-"
}

func printChat(w io.Writer, view *chat.View) {
	if len(view.Entries) == 0 {
		fmt.Fprintln(w, "No messages.")
	}
	for _, e := range view.Entries {
		m := e.Message
		author := m.Author
		if m.FromSelf() {
			author = "You"
		}
		text := m.Text
		if m.Kind == domain.KindLocation {
			text = "[location] " + strings.TrimSpace(m.Text)
		}
		fmt.Fprintf(w, "%s  %s: %s\n", m.CreatedAt, author, text)
	}
	if view.Draft != "" {
		fmt.Fprintf(w, "\nDraft: %s\n", view.Draft)
	}
}

func printNotifications(w io.Writer, view *notifications.View) error {
	if len(view.Items) == 0 {
		_, err := fmt.Fprintln(w, "No notifications.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIVED\tTITLE\tMESSAGE")
	for _, n := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", orDash(n.CreatedAt), orDash(n.Title), n.Body)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []domain.Activity) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No activity.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tORDER\tKIND\tDETAIL\tOUTCOME")
	for _, a := range entries {
		outcome := a.Outcome
		if a.Error != "" {
			outcome += ": " + a.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.Occurred.Local().Format(time.DateTime), a.OrderID, a.Kind, orDash(a.Detail), outcome)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
