package views

import (
	"strings"
	"testing"

	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"👍🏻", "👍"},
		{"👨‍👩‍👧", "👨👩👧"},
		{"❤️", "❤"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeForTerminal(tt.in); got != tt.want {
			t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessageBodyLinksLocations(t *testing.T) {
	loc := domain.ChatMessage{Text: " 25.2048, 55.2708 ", Kind: domain.KindLocation}
	got := messageBody(loc)
	want := "Location: https://www.google.com/maps/search/?api=1&query=25.2048%2C55.2708"
	if got != want {
		t.Errorf("messageBody(location) = %q, want %q", got, want)
	}

	plain := domain.ChatMessage{Text: "25.2, 55.2 is wrong", Kind: domain.KindPlain}
	if got := messageBody(plain); got != plain.Text {
		t.Errorf("messageBody(plain) = %q", got)
	}
}

func TestAddressLine(t *testing.T) {
	o := domain.Order{Address: "Marina", FlatVilla: "1204", Building: "Tower 2", City: "Dubai"}
	if got := addressLine(o); got != "1204, Tower 2, Dubai" {
		t.Errorf("addressLine = %q", got)
	}
	if got := addressLine(domain.Order{Address: " Marina "}); got != "Marina" {
		t.Errorf("addressLine fallback = %q", got)
	}
}

func TestHandoffTargets(t *testing.T) {
	o := domain.Order{
		Phone:     "+971 50 000 0000",
		WhatsApp:  "+971-50-000-0001",
		Latitude:  "25.2",
		Longitude: "55.3",
	}
	got := HandoffTargets(o)
	want := []string{
		"tel:+971500000000",
		"whatsapp://send?phone=971500000001",
		"geo:25.2,55.3?q=25.2%2C55.3",
	}
	if len(got) != len(want) {
		t.Fatalf("targets = %+v", got)
	}
	for i := range want {
		if got[i].URI != want[i] {
			t.Errorf("target %d = %q, want %q", i, got[i].URI, want[i])
		}
	}

	if got := HandoffTargets(domain.Order{Phone: "n/a"}); len(got) != 0 {
		t.Errorf("targets without contact = %+v", got)
	}
}

func TestRenderQR(t *testing.T) {
	out := renderQR("tel:+971500000000")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("QR has %d rows", len(lines))
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("QR has no modules")
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if len([]rune(l)) != width {
			t.Fatalf("row %d width %d, want %d", i, len([]rune(l)), width)
		}
	}
}

func TestOrdersViewRowsAndSelection(t *testing.T) {
	ov := NewOrdersView(ui.DefaultTheme())
	view := orders.View{Loaded: true, Items: []orders.Item{
		{Order: domain.Order{ID: "501", DriverStatus: "Pick me", CustomerName: "Aisha"}, Action: "Mark as Accepted"},
		{Order: domain.Order{ID: "502", DriverStatus: "Coming", CustomerName: "Omar"}, Busy: true},
		{Order: domain.Order{ID: "503", DriverStatus: "Dropped", CustomerName: "Lina"}},
	}}
	ov.Update(view)

	if got := ov.GetCell(1, 5).Text; got != " Mark as Accepted" {
		t.Errorf("action cell = %q", got)
	}
	if got := ov.GetCell(2, 5).Text; got != " "+busyLabel {
		t.Errorf("busy cell = %q", got)
	}
	if got := ov.GetCell(3, 5).Text; got != " "+doneLabel {
		t.Errorf("terminal order action = %q", got)
	}

	ov.Select(2, 0)
	// The list reorders; the cursor follows order 502.
	view.Items[0], view.Items[1] = view.Items[1], view.Items[0]
	ov.Update(view)
	if it, ok := ov.Selected(); !ok || it.Order.ID != "502" {
		t.Errorf("selected %+v after reorder", it)
	}

	ov.SetFilter("lina")
	if len(ov.Visible()) != 1 || ov.Visible()[0].Order.ID != "503" {
		t.Errorf("filtered rows = %+v", ov.Visible())
	}
	if it, ok := ov.Selected(); !ok || it.Order.ID != "503" {
		t.Errorf("filter did not move cursor to top, got %+v", it)
	}
}

func TestChatViewDraftAndScroll(t *testing.T) {
	cv := NewChatView(ui.DefaultTheme())
	var drafts []string
	cv.SetOnDraft(func(_ domain.ID, text string) { drafts = append(drafts, text) })

	cv.Open("501", "Aisha")
	if len(drafts) != 0 {
		t.Fatalf("opening stored a draft: %v", drafts)
	}

	cv.Update(chat.View{OrderID: "999", Loaded: true, Draft: "other"}, true)
	if cv.Composer().GetText() != "" {
		t.Fatal("update for another order applied")
	}

	cv.Update(chat.View{
		OrderID: "501",
		Loaded:  true,
		Draft:   "on my way",
		Entries: []chat.Entry{{Key: "t1-0", Message: domain.ChatMessage{Author: "self", Text: "25.1,55.2", Kind: domain.KindLocation, CreatedAt: "t1"}}},
	}, true)
	if got := cv.Composer().GetText(); got != "on my way" {
		t.Errorf("composer = %q, want stored draft", got)
	}
	text := cv.Messages().GetText(true)
	if !strings.Contains(text, "You") || !strings.Contains(text, "maps/search") {
		t.Errorf("thread = %q", text)
	}

	cv.Composer().SetText("edited")
	cv.Update(chat.View{OrderID: "501", Loaded: true, Draft: "on my way", ComposeFailed: true}, false)
	if got := cv.Composer().GetText(); got != "edited" {
		t.Errorf("later update overwrote composer: %q", got)
	}
	if got := cv.Composer().GetTitle(); !strings.Contains(got, "Not sent") {
		t.Errorf("composer title = %q", got)
	}
}
