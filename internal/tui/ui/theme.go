package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/drv/internal/lifecycle"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	SelfColor         tcell.Color
	PeerColor         tcell.Color
	LinkColor         tcell.Color
	BusyColor         tcell.Color
	UnknownColor      tcell.Color
	StatusColors      map[string]tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
		SelfColor:         tcell.ColorLightGreen,
		PeerColor:         tcell.ColorLightSkyBlue,
		LinkColor:         tcell.ColorAqua,
		BusyColor:         tcell.ColorOrange,
		UnknownColor:      tcell.ColorGray,
		StatusColors: map[string]tcell.Color{
			lifecycle.PickMe:         tcell.ColorYellow,
			lifecycle.Accepted:       tcell.ColorDodgerBlue,
			lifecycle.Coming:         tcell.ColorMediumPurple,
			lifecycle.ArrivedForPick: tcell.ColorOrange,
			lifecycle.Traveling:      tcell.ColorAqua,
			lifecycle.Dropped:        tcell.ColorGreen,
		},
	}
}

// StatusColor returns the badge color for a driver status. Statuses outside
// the lifecycle get UnknownColor.
func (t *Theme) StatusColor(status string) tcell.Color {
	if c, ok := t.StatusColors[status]; ok {
		return c
	}
	return t.UnknownColor
}

// ColorName returns a tview-compatible color name string.
func ColorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
