package views

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/matheus3301/drv/internal/domain"
)

// hooks carries the Start and Stop callbacks the app installs on a page.
type hooks struct {
	onStart func()
	onStop  func()
}

// OnStart sets the callback run when the page comes to the front.
func (h *hooks) OnStart(fn func()) { h.onStart = fn }

// OnStop sets the callback run when the page leaves the front.
func (h *hooks) OnStop(fn func()) { h.onStop = fn }

// Start implements ui.Component.
func (h *hooks) Start() {
	if h.onStart != nil {
		h.onStart()
	}
}

// Stop implements ui.Component.
func (h *hooks) Stop() {
	if h.onStop != nil {
		h.onStop()
	}
}

// sanitizeForTerminal removes codepoints that tcell renders with the wrong
// width: skin tone modifiers, zero width joiners and variation selectors.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// splitLocation parses a "lat,lng" message body.
func splitLocation(text string) (lat, lng string, ok bool) {
	lat, lng, ok = strings.Cut(strings.TrimSpace(text), ",")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(lat), strings.TrimSpace(lng), true
}

// mapsURL links to the coordinates on a web map.
func mapsURL(lat, lng string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(lat+","+lng)
}

// messageBody is the text shown for a chat message. Locations become map
// links.
func messageBody(m domain.ChatMessage) string {
	if m.Kind == domain.KindLocation {
		if lat, lng, ok := splitLocation(m.Text); ok {
			return "Location: " + mapsURL(lat, lng)
		}
	}
	return sanitizeForTerminal(m.Text)
}

// addressLine joins the non-empty address parts of o.
func addressLine(o domain.Order) string {
	var parts []string
	for _, p := range []string{o.FlatVilla, o.Building, o.Street, o.District, o.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(o.Address)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func countTitle(name string, n int) string {
	return fmt.Sprintf(" %s [%d] ", name, n)
}
