// Package sync decides which views are polled. A view is live while the
// driver is signed in and at least one watcher has it open.
package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/poll"
	"github.com/matheus3301/drv/internal/session"
)

const (
	viewOrders        = "orders"
	viewNotifications = "notifications"
)

func chatView(orderID domain.ID) string { return "chat:" + orderID.String() }

// Intervals are the poll periods of each view.
type Intervals struct {
	Orders        time.Duration
	Chat          time.Duration
	Notifications time.Duration
}

// Coordinator owns the poll subscriptions of the three views.
type Coordinator struct {
	poller    *poll.Poller
	gate      *session.Gate
	bus       *bus.Bus
	orders    *orders.Engine
	chat      *chat.Engine
	notes     *notifications.Engine
	intervals Intervals
	logger    *zap.Logger

	mu        sync.Mutex
	running   bool
	watchers  map[string]int
	ordersSub *poll.Subscription
	notesSub  *poll.Subscription
	chats     map[domain.ID]*poll.Subscription

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator wires the engines to the poller.
func NewCoordinator(p *poll.Poller, g *session.Gate, b *bus.Bus, o *orders.Engine, c *chat.Engine, n *notifications.Engine, iv Intervals, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		poller:    p,
		gate:      g,
		bus:       b,
		orders:    o,
		chat:      c,
		notes:     n,
		intervals: iv,
		logger:    logger.Named("sync"),
		watchers:  make(map[string]int),
		chats:     make(map[domain.ID]*poll.Subscription),
	}
}

// Start begins the order and notification subscriptions and follows
// identity changes.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	ch, unsub := c.bus.Subscribe(bus.KindIdentityChanged, 16)

	c.mu.Lock()
	c.running = true
	c.ordersSub = c.poller.Start(viewOrders, c.orders.Fetch, c.intervals.Orders,
		c.liveFor(viewOrders), poll.OnError(c.orders.ReportError))
	c.notesSub = c.poller.Start(viewNotifications, c.notes.Fetch, c.intervals.Notifications,
		c.liveFor(viewNotifications), poll.OnError(c.notes.ReportError))
	c.orders.SetRefresher(c.ordersSub.Refresh)
	c.chat.SetRefresher(c.refreshChat)
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				if change, ok := evt.Payload.(session.IdentityChange); ok {
					c.identityChanged(change)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends every subscription. No engine state changes after it returns.
func (c *Coordinator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.orders.SetRefresher(nil)
	c.chat.SetRefresher(nil)

	c.mu.Lock()
	c.running = false
	subs := []*poll.Subscription{c.ordersSub, c.notesSub}
	for id, sub := range c.chats {
		subs = append(subs, sub)
		delete(c.chats, id)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		c.poller.Stop(sub)
	}
}

// WatchOrders marks the order view visible until the returned func is
// called.
func (c *Coordinator) WatchOrders() (release func()) {
	return c.watch(viewOrders, func() *poll.Subscription { return c.ordersSub })
}

// WatchNotifications marks the notification view visible.
func (c *Coordinator) WatchNotifications() (release func()) {
	return c.watch(viewNotifications, func() *poll.Subscription { return c.notesSub })
}

func (c *Coordinator) watch(key string, sub func() *poll.Subscription) func() {
	c.mu.Lock()
	c.watchers[key]++
	s := sub()
	c.mu.Unlock()
	wake(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.unwatch(key)
			s := sub()
			c.mu.Unlock()
			wake(s)
		})
	}
}

// WatchChat marks orderID's chat visible. The first watcher starts its
// subscription and the last one to leave stops it and drops the thread.
func (c *Coordinator) WatchChat(orderID domain.ID) (release func()) {
	key := chatView(orderID)

	c.mu.Lock()
	c.watchers[key]++
	sub, existed := c.chats[orderID]
	if !existed && c.running {
		sub = c.poller.Start("chat", c.chat.FetchFunc(orderID), c.intervals.Chat, c.liveFor(key),
			poll.OnError(func(err error) { c.chat.ReportError(orderID, err) }))
		c.chats[orderID] = sub
		c.logger.Debug("chat subscription started", zap.String("order_id", orderID.String()))
	}
	c.mu.Unlock()
	if existed {
		wake(sub)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.releaseChat(orderID) })
	}
}

func (c *Coordinator) releaseChat(orderID domain.ID) {
	key := chatView(orderID)

	c.mu.Lock()
	c.unwatch(key)
	var stopping *poll.Subscription
	if c.watchers[key] == 0 {
		stopping = c.chats[orderID]
		delete(c.chats, orderID)
	}
	c.mu.Unlock()

	if stopping == nil {
		return
	}
	c.poller.Stop(stopping)
	c.logger.Debug("chat subscription stopped", zap.String("order_id", orderID.String()))

	c.mu.Lock()
	if c.watchers[key] == 0 {
		c.chat.Forget(orderID)
	}
	c.mu.Unlock()
}

// refreshChat runs a post-send refresh on orderID's subscription when one
// is running so it cannot overlap that subscription's poll fetch.
func (c *Coordinator) refreshChat(ctx context.Context, orderID domain.ID) error {
	c.mu.Lock()
	sub := c.chats[orderID]
	c.mu.Unlock()
	if sub == nil {
		return c.chat.Refresh(ctx, orderID)
	}
	return sub.Refresh(ctx)
}

// Watching reports whether any watcher has the view open.
func (c *Coordinator) Watching(orderID domain.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if orderID == "" {
		return c.watchers[viewOrders] > 0
	}
	return c.watchers[chatView(orderID)] > 0
}

// unwatch drops one watcher of key. Callers hold c.mu.
func (c *Coordinator) unwatch(key string) {
	if c.watchers[key] <= 1 {
		delete(c.watchers, key)
		return
	}
	c.watchers[key]--
}

func (c *Coordinator) liveFor(key string) poll.LiveFunc {
	return func() bool {
		if _, ok := c.gate.Current(); !ok {
			return false
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.watchers[key] > 0
	}
}

func (c *Coordinator) identityChanged(change session.IdentityChange) {
	if !change.Present {
		c.logger.Info("driver signed out, clearing views")
		c.orders.Reset()
		c.notes.Reset()
		c.chat.Reset()
	} else {
		c.logger.Info("driver signed in", zap.String("driver_id", change.DriverID.String()))
	}

	c.mu.Lock()
	subs := []*poll.Subscription{c.ordersSub, c.notesSub}
	for _, sub := range c.chats {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	for _, sub := range subs {
		wake(sub)
	}
}

func wake(sub *poll.Subscription) {
	if sub != nil {
		sub.Wake()
	}
}
