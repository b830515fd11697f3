package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/drv/internal/tui/ui"
)

// LoginView is the sign-in form shown while no driver is signed in.
type LoginView struct {
	*tview.Flex
	hooks
	theme    *ui.Theme
	form     *tview.Form
	message  *tview.TextView
	busy     bool
	onSubmit func(username, password string)
}

// NewLoginView creates the sign-in form.
func NewLoginView(theme *ui.Theme) *LoginView {
	form := tview.NewForm().
		AddInputField("Username", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.TableCursorBg)
	form.SetButtonTextColor(theme.TableCursorFg)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)

	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)

	inner := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(form, 9, 0, true).
		AddItem(message, 2, 0, false).
		AddItem(nil, 0, 1, false)
	flex := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(inner, 60, 0, true).
		AddItem(nil, 0, 1, false)

	lv := &LoginView{
		Flex:    flex,
		theme:   theme,
		form:    form,
		message: message,
	}
	form.AddButton("Sign in", lv.submit)
	form.SetCancelFunc(func() {})
	form.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if item, _ := form.GetFocusedItemIndex(); ev.Key() == tcell.KeyEnter && item == 1 {
			lv.submit()
			return nil
		}
		return ev
	})
	return lv
}

// Name implements ui.Component.
func (lv *LoginView) Name() string { return "Login" }

// SetOnSubmit sets the callback run with trimmed credentials.
func (lv *LoginView) SetOnSubmit(fn func(username, password string)) {
	lv.onSubmit = fn
}

func (lv *LoginView) submit() {
	if lv.busy || lv.onSubmit == nil {
		return
	}
	username := strings.TrimSpace(lv.field("Username"))
	password := lv.field("Password")
	if username == "" || password == "" {
		lv.ShowError("username and password are required")
		return
	}
	lv.SetBusy(true)
	lv.onSubmit(username, password)
}

func (lv *LoginView) field(label string) string {
	if input, ok := lv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return input.GetText()
	}
	return ""
}

// SetBusy shows the signing-in state and ignores submits while set.
func (lv *LoginView) SetBusy(busy bool) {
	lv.busy = busy
	lv.message.Clear()
	if busy {
		lv.message.SetText("[" + ui.ColorName(lv.theme.FlashInfoColor) + "]Signing in...")
	}
}

// ShowError clears the busy state and shows msg under the form.
func (lv *LoginView) ShowError(msg string) {
	lv.busy = false
	lv.message.Clear()
	lv.message.SetText("[" + ui.ColorName(lv.theme.FlashErrColor) + "]" + tview.Escape(msg))
}

// Reset empties the password and any message.
func (lv *LoginView) Reset() {
	lv.busy = false
	lv.message.Clear()
	if input, ok := lv.form.GetFormItemByLabel("Password").(*tview.InputField); ok {
		input.SetText("")
	}
	lv.form.SetFocus(0)
}
