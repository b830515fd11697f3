package views

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/tui/ui"
)

// Target is something the driver's phone can open from a QR code.
type Target struct {
	Label string
	URI   string
}

// HandoffTargets returns the phone actions available for o: calling the
// customer, messaging them on WhatsApp and navigating to the drop-off.
func HandoffTargets(o domain.Order) []Target {
	var out []Target
	if p := dialable(o.Phone); p != "" {
		out = append(out, Target{Label: "Call " + o.Phone, URI: "tel:" + p})
	}
	if p := strings.TrimPrefix(dialable(o.WhatsApp), "+"); p != "" {
		out = append(out, Target{Label: "WhatsApp " + o.WhatsApp, URI: "whatsapp://send?phone=" + url.QueryEscape(p)})
	}
	if o.HasLocation() {
		lat, lng := strings.TrimSpace(o.Latitude), strings.TrimSpace(o.Longitude)
		out = append(out, Target{Label: "Navigate", URI: "geo:" + lat + "," + lng + "?q=" + url.QueryEscape(lat+","+lng)})
	}
	return out
}

// dialable keeps the digits of a phone number and a leading plus.
func dialable(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	if strings.Trim(b.String(), "+") == "" {
		return ""
	}
	return b.String()
}

// HandoffView shows an order's contact details and a QR code that moves
// the next step to the driver's phone.
type HandoffView struct {
	*tview.TextView
	hooks
	theme   *ui.Theme
	order   domain.Order
	targets []Target
	current int
}

// NewHandoffView creates the hand-off page.
func NewHandoffView(theme *ui.Theme) *HandoffView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Hand-off ")
	tv.SetTitleColor(theme.TitleColor)

	return &HandoffView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (hv *HandoffView) Name() string { return "Hand-off" }

// Show renders o with its first target.
func (hv *HandoffView) Show(o domain.Order) {
	hv.order = o
	hv.targets = HandoffTargets(o)
	hv.current = 0
	hv.render()
}

// Next cycles to the following target.
func (hv *HandoffView) Next() {
	if len(hv.targets) == 0 {
		return
	}
	hv.current = (hv.current + 1) % len(hv.targets)
	hv.render()
}

func (hv *HandoffView) render() {
	hv.Clear()
	hv.SetTitle(" Hand-off #" + tview.Escape(hv.order.ID.String()) + " ")
	label := ui.ColorName(hv.theme.MenuKeyColor)
	value := ui.ColorName(hv.theme.CounterColor)

	o := hv.order
	rows := []struct{ k, v string }{
		{"Customer", o.CustomerName},
		{"Status", o.DriverStatus},
		{"Slot", o.TimeSlot},
		{"Address", addressLine(o)},
		{"Phone", o.Phone},
		{"WhatsApp", o.WhatsApp},
	}
	if o.HasLocation() {
		rows = append(rows, struct{ k, v string }{"Map", mapsURL(o.Latitude, o.Longitude)})
	}
	_, _ = fmt.Fprint(hv, "\n")
	for _, r := range rows {
		_, _ = fmt.Fprintf(hv, "  [%s::b]%-9s[-:-:-] [%s]%s[-]\n", label, r.k, value, tview.Escape(sanitizeForTerminal(orDash(r.v))))
	}

	if len(hv.targets) == 0 {
		_, _ = fmt.Fprint(hv, "\n  [::d]No phone number or location on this order.[-:-:-]\n")
		return
	}
	t := hv.targets[hv.current]
	_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]  [::d](%d/%d, Tab for next)[-:-:-]\n\n%s\n  [::d]%s[-:-:-]\n",
		tview.Escape(t.Label), hv.current+1, len(hv.targets), renderQR(t.URI), tview.Escape(t.URI))
}

// renderQR converts a string to a compact QR code drawn with Unicode
// half-block characters, two modules per text row.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
