// Package tui is the terminal interface of a driver session.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/rpc"
	"github.com/matheus3301/drv/internal/tui/client"
	"github.com/matheus3301/drv/internal/tui/keys"
	"github.com/matheus3301/drv/internal/tui/model"
	"github.com/matheus3301/drv/internal/tui/ui"
	"github.com/matheus3301/drv/internal/tui/views"
)

const (
	statusInterval = 3 * time.Second
	retryDelay     = 2 * time.Second
	callTimeout    = 30 * time.Second
)

type draft struct {
	orderID domain.ID
	text    string
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	registry *keys.Registry
	flash    *ui.FlashModel
	logger   *zap.Logger
	session  string

	root     *tview.Flex
	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	pages    *ui.Pages
	promptOn bool

	login    *views.LoginView
	orders   *views.OrdersView
	chat     *views.ChatView
	notes    *views.NotificationsView
	handoff  *views.HandoffView
	help     *views.HelpView
	streams  map[string]context.CancelFunc
	drafts   chan draft
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		vm:       model.NewViewModel(c),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		logger:   logger.Named("tui"),
		session:  sessionName,
		info:     ui.NewSessionInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme, Commands),
		pages:    ui.NewPages(),
		login:    views.NewLoginView(theme),
		orders:   views.NewOrdersView(theme),
		chat:     views.NewChatView(theme),
		notes:    views.NewNotificationsView(theme),
		handoff:  views.NewHandoffView(theme),
		help:     views.NewHelpView(theme),
		streams:  make(map[string]context.CancelFunc),
		drafts:   make(chan draft, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupPages()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupPages() {
	for _, c := range []ui.Component{a.login, a.orders, a.chat, a.notes, a.handoff, a.help} {
		a.pages.Add(c)
	}

	a.orders.OnStart(func() {
		a.openStream(a.orders.Name(), func(ctx context.Context) error {
			return a.vm.WatchOrders(ctx, func(u rpc.OrdersUpdate) {
				a.app.QueueUpdateDraw(func() {
					a.orders.Update(u.View)
					if u.ScrollTop {
						a.orders.ScrollTop()
					}
					a.updateInfo()
				})
			})
		})
	})
	a.orders.OnStop(func() { a.closeStream(a.orders.Name()) })

	a.chat.OnStart(func() {
		orderID := a.chat.OrderID()
		a.openStream(a.chat.Name(), func(ctx context.Context) error {
			return a.vm.WatchChat(ctx, orderID, func(u rpc.ChatUpdate) {
				a.app.QueueUpdateDraw(func() { a.chat.Update(u.View, u.Grew) })
			})
		})
	})
	a.chat.OnStop(func() { a.closeStream(a.chat.Name()) })

	a.notes.OnStart(func() {
		a.openStream(a.notes.Name(), func(ctx context.Context) error {
			return a.vm.WatchNotifications(ctx, func(v notifications.View) {
				a.app.QueueUpdateDraw(func() { a.notes.Update(v) })
			})
		})
	})
	a.notes.OnStop(func() { a.closeStream(a.notes.Name()) })

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		top := a.pages.Current()
		a.menu.Update(a.registry.Hints(top))
		if c, ok := a.pages.Component(top); ok {
			a.app.SetFocus(c)
		}
	})
}

// openStream runs watch for page until the page stops. The open stream is
// what makes the view visible to the daemon.
func (a *App) openStream(page string, watch func(context.Context) error) {
	a.closeStream(page)
	ctx, cancel := context.WithCancel(a.ctx)
	a.streams[page] = cancel
	go model.Follow(ctx, retryDelay, watch, func(err error) {
		a.logger.Debug("watch failed", zap.String("page", page), zap.Error(err))
		a.queueErr(err)
	})
}

func (a *App) closeStream(page string) {
	if cancel, ok := a.streams[page]; ok {
		cancel()
		delete(a.streams, page)
	}
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Description: "Help", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit", Visible: true,
		Handler: a.Stop,
	})

	orders := a.orders.Name()
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter", Description: "Advance", Visible: true,
		Handler: a.advanceSelected,
	})
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c', Label: "c", Description: "Chat", Visible: true,
		Handler: func() {
			if it, ok := a.orders.Selected(); ok {
				a.openChat(it.Order.ID)
			}
		},
	})
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyRune, Rune: 'h', Label: "h", Description: "Hand-off", Visible: true,
		Handler: func() {
			if it, ok := a.orders.Selected(); ok {
				a.openHandoff(it.Order.ID)
			}
		},
	})
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyRune, Rune: 'n', Label: "n", Description: "Notifications", Visible: true,
		Handler: func() { a.pages.Push(a.notes.Name()) },
	})
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r", Description: "Refresh", Visible: true,
		Handler: a.refreshOrders,
	})
	a.registry.AddPage(orders, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})

	a.registry.AddPage(a.chat.Name(), &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.chat.Composer()) },
	})
	a.registry.AddPage(a.handoff.Name(), &keys.Action{
		Key: tcell.KeyTab, Label: "Tab", Description: "Next code", Visible: true,
		Handler: a.handoff.Next,
	})
	for _, page := range []string{a.chat.Name(), a.notes.Name(), a.handoff.Name(), a.help.Name()} {
		a.registry.AddPage(page, &keys.Action{
			Key: tcell.KeyEscape, Label: "Esc", Description: "Back", Visible: true,
			Handler: func() { a.pages.Pop() },
		})
	}
}

func (a *App) setupCallbacks() {
	a.login.SetOnSubmit(func(username, password string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			defer cancel()
			id, err := a.vm.Login(ctx, username, password)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.login.ShowError(status.Convert(err).Message())
					return
				}
				a.login.Reset()
				a.pages.Reset(a.orders.Name())
				a.flash.Info("Signed in as " + orName(id))
			})
		}()
	})

	a.chat.SetOnSend(func(orderID domain.ID, text string) {
		go func() {
			err := a.vm.Send(a.ctx, orderID, text)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					// The daemon keeps the draft and raises an alert.
					a.logger.Debug("send failed", zap.Error(err))
					return
				}
				if a.chat.OrderID() == orderID {
					a.chat.ClearComposer()
				}
			})
		}()
	})
	a.chat.SetOnDraft(func(orderID domain.ID, text string) {
		a.queueDraft(draft{orderID: orderID, text: text})
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.orders.SetFilter(text)
		case ui.PromptCommand:
			if text != "" {
				a.runCommand(ParseCommand(text))
			}
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 18, 0, false).
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if a.promptOn {
		return ev
	}
	focused := a.app.GetFocus()
	if ev.Key() == tcell.KeyEscape && focused == a.chat.Composer() {
		a.app.SetFocus(a.chat.Messages())
		return nil
	}
	// Let text input widgets handle all keys normally.
	if _, ok := focused.(*tview.InputField); ok {
		return ev
	}
	if a.pages.Current() == a.login.Name() {
		return ev
	}
	if a.registry.HandleEvent(a.pages.Current(), ev) {
		return nil
	}
	return ev
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.promptOn = true
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.promptOn = false
	a.root.ResizeItem(a.prompt, 0, 0)
	if c, ok := a.pages.Component(a.pages.Current()); ok {
		a.app.SetFocus(c)
	}
}

func (a *App) runCommand(cmd Command) {
	signedIn := a.pages.Current() != a.login.Name()
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.showHelp()
	case "orders":
		if signedIn {
			a.pages.Reset(a.orders.Name())
		}
	case "notifications":
		if signedIn {
			a.pages.Push(a.notes.Name())
		}
	case "chat":
		if signedIn && cmd.Args != "" {
			a.openChat(domain.ID(cmd.Args))
		}
	case "handoff":
		if signedIn && cmd.Args != "" {
			a.openHandoff(domain.ID(cmd.Args))
		}
	case "logout":
		a.logout()
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
		a.updateFlash()
	}
}

func (a *App) showHelp() {
	if a.pages.Current() != a.help.Name() {
		a.pages.Push(a.help.Name())
	}
}

func (a *App) advanceSelected() {
	it, ok := a.orders.Selected()
	if !ok {
		return
	}
	if it.Busy {
		a.flash.Info("Order " + it.Order.ID.String() + " is already updating")
		a.updateFlash()
		return
	}
	if it.Action == "" {
		a.flash.Info("No action for order " + it.Order.ID.String())
		a.updateFlash()
		return
	}
	go func() {
		next, err := a.vm.Advance(a.ctx, it)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.Err(fmt.Errorf("order %s: %s", it.Order.ID, status.Convert(err).Message()))
			} else if next != "" {
				a.flash.Info("Order " + it.Order.ID.String() + " is now " + next)
			}
			a.updateFlash()
		})
	}()
}

func (a *App) refreshOrders() {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := a.vm.RefreshOrders(ctx); err != nil {
			a.queueErr(err)
		}
	}()
}

func (a *App) openChat(orderID domain.ID) {
	if a.pages.Current() == a.chat.Name() {
		a.pages.Pop()
	}
	it, _ := a.vm.Order(orderID)
	a.chat.Open(orderID, it.Order.CustomerName)
	a.pages.Push(a.chat.Name())
	a.app.SetFocus(a.chat.Messages())
}

func (a *App) openHandoff(orderID domain.ID) {
	it, ok := a.vm.Order(orderID)
	if !ok {
		a.flash.Warn("Order " + orderID.String() + " is not in the list")
		a.updateFlash()
		return
	}
	if a.pages.Current() == a.handoff.Name() {
		a.pages.Pop()
	}
	a.handoff.Show(it.Order)
	a.pages.Push(a.handoff.Name())
}

func (a *App) logout() {
	go func() {
		err := a.vm.Logout(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.Err(err)
				a.updateFlash()
				return
			}
			a.showLogin()
		})
	}()
}

func (a *App) showLogin() {
	a.login.Reset()
	a.pages.Reset(a.login.Name())
	a.updateInfo()
}

// queueDraft keeps only the latest unsent draft.
func (a *App) queueDraft(d draft) {
	for {
		select {
		case a.drafts <- d:
			return
		default:
			select {
			case <-a.drafts:
			default:
			}
		}
	}
}

func (a *App) saveDrafts() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case d := <-a.drafts:
			if err := a.vm.SetDraft(a.ctx, d.orderID, d.text); err != nil {
				a.logger.Debug("save draft failed", zap.Error(err))
			}
		}
	}
}

func (a *App) followAlerts() {
	model.Follow(a.ctx, retryDelay, func(ctx context.Context) error {
		return a.vm.WatchAlerts(ctx, func(al failure.Alert) {
			a.app.QueueUpdateDraw(func() {
				a.flash.Alert(al)
				a.updateFlash()
			})
		})
	}, nil)
}

// followStatus tracks sign-in changes made elsewhere, e.g. by drvctl.
func (a *App) followStatus() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		a.syncStatus()
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) syncStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	st, err := a.vm.LoadStatus(ctx)
	a.app.QueueUpdateDraw(func() {
		defer a.updateFlash()
		if err != nil {
			if a.ctx.Err() == nil {
				a.flash.Warn("daemon unreachable: " + status.Convert(err).Message())
			}
			return
		}
		a.updateInfo()
		current := a.pages.Current()
		switch {
		case st.Driver == nil && current != a.login.Name():
			a.showLogin()
		case st.Driver != nil && (current == a.login.Name() || current == ""):
			a.login.Reset()
			a.pages.Reset(a.orders.Name())
		}
	})
}

func (a *App) updateInfo() {
	st := a.vm.Status()
	data := &ui.SessionData{
		Session: a.session,
		Status:  st.Status,
		Orders:  len(a.vm.Orders().Items),
		Uptime:  time.Duration(st.UptimeMs) * time.Millisecond,
	}
	if st.Driver != nil {
		data.Driver = orName(*st.Driver)
	}
	a.info.Update(data)
}

func (a *App) updateFlash() {
	a.flashBar.Update(a.flash.Current())
}

func (a *App) queueErr(err error) {
	a.app.QueueUpdateDraw(func() {
		a.flash.Warn(status.Convert(err).Message())
		a.updateFlash()
	})
}

// expireFlash clears the flash bar once its message lapses.
func (a *App) expireFlash() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.updateFlash)
		}
	}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.info.Update(&ui.SessionData{Session: a.session, Status: "CONNECTING"})
	go a.followStatus()
	go a.followAlerts()
	go a.saveDrafts()
	go a.expireFlash()

	err := a.app.Run()
	a.pages.StopAll()
	a.cancel()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.app.Stop()
	})
}

func orName(id domain.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return "driver " + id.DriverID.String()
}
