package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/tui/ui"
)

const composerTitle = " Compose (i to focus) "

// ChatView shows one order's chat history and a composer.
type ChatView struct {
	*tview.Flex
	hooks
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	orderID  domain.ID
	customer string
	seeded   bool
	onSend   func(orderID domain.ID, text string)
	onDraft  func(orderID domain.ID, text string)
}

// NewChatView creates the chat page.
func NewChatView(theme *ui.Theme) *ChatView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(composerTitle)
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	cv := &ChatView{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if cv.onDraft != nil && cv.orderID != "" {
			cv.onDraft(cv.orderID, text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && cv.onSend != nil && cv.orderID != "" {
			if text := composer.GetText(); text != "" {
				cv.onSend(cv.orderID, text)
			}
		}
	})
	return cv
}

// Name implements ui.Component.
func (cv *ChatView) Name() string { return "Chat" }

// Open switches the page to orderID and clears the previous thread.
func (cv *ChatView) Open(orderID domain.ID, customer string) {
	// Cleared before the id is set so the edit is not stored as a draft.
	cv.orderID = ""
	cv.composer.SetText("")
	cv.orderID = orderID
	cv.customer = customer
	cv.seeded = false
	cv.messages.Clear()
	cv.composer.SetTitle(composerTitle)
	cv.composer.SetBorderColor(cv.theme.BorderColor)
	cv.setTitle(0, false)
}

// OrderID returns the open order.
func (cv *ChatView) OrderID() domain.ID { return cv.orderID }

// SetOnSend sets the callback run when Enter is pressed in the composer.
func (cv *ChatView) SetOnSend(fn func(orderID domain.ID, text string)) {
	cv.onSend = fn
}

// SetOnDraft sets the callback run on every composer edit.
func (cv *ChatView) SetOnDraft(fn func(orderID domain.ID, text string)) {
	cv.onDraft = fn
}

// Update renders view. The history scrolls to the end only when grew is
// set. The first loaded view seeds the composer with the stored draft.
func (cv *ChatView) Update(view chat.View, grew bool) {
	if view.OrderID != cv.orderID {
		return
	}
	row, col := cv.messages.GetScrollOffset()
	cv.messages.Clear()
	_, _ = fmt.Fprint(cv.messages, renderThread(view, cv.theme))
	if grew {
		cv.messages.ScrollToEnd()
	} else {
		cv.messages.ScrollTo(row, col)
	}
	cv.setTitle(len(view.Entries), view.Loaded)

	if !cv.seeded && view.Loaded {
		cv.seeded = true
		if cv.composer.GetText() == "" && view.Draft != "" {
			cv.composer.SetText(view.Draft)
		}
	}
	if view.ComposeFailed {
		cv.composer.SetTitle(" Not sent, Enter to retry ")
		cv.composer.SetBorderColor(cv.theme.FlashErrColor)
	} else {
		cv.composer.SetTitle(composerTitle)
		cv.composer.SetBorderColor(cv.theme.BorderColor)
	}
}

// ClearComposer empties the composer after a successful send.
func (cv *ChatView) ClearComposer() {
	cv.composer.SetText("")
}

// Messages returns the history view (for focus management).
func (cv *ChatView) Messages() *tview.TextView { return cv.messages }

// Composer returns the composer input field (for focus management).
func (cv *ChatView) Composer() *tview.InputField { return cv.composer }

func (cv *ChatView) setTitle(n int, loaded bool) {
	name := "Chat #" + cv.orderID.String()
	if cv.customer != "" {
		name += " " + sanitizeForTerminal(cv.customer)
	}
	if !loaded {
		cv.messages.SetTitle(" " + tview.Escape(name) + " [loading] ")
		return
	}
	cv.messages.SetTitle(countTitle(tview.Escape(name), n))
}

// renderThread formats the history oldest first, as the backend orders it.
func renderThread(view chat.View, theme *ui.Theme) string {
	if view.Loaded && len(view.Entries) == 0 {
		return "[::d]No messages yet.[-:-:-]\n"
	}
	self := ui.ColorName(theme.SelfColor)
	peer := ui.ColorName(theme.PeerColor)
	link := ui.ColorName(theme.LinkColor)

	var out string
	for _, e := range view.Entries {
		m := e.Message
		author, color := m.Author, peer
		if m.FromSelf() {
			author, color = "You", self
		}
		body := tview.Escape(messageBody(m))
		if m.Kind == domain.KindLocation {
			body = "[" + link + "::u]" + body + "[-:-:-]"
		}
		out += fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			color, tview.Escape(sanitizeForTerminal(orDash(author))), tview.Escape(m.CreatedAt), body)
	}
	return out
}
