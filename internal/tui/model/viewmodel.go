// Package model caches what the daemon streams to the TUI.
package model

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/notifications"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/rpc"
	"github.com/matheus3301/drv/internal/tui/client"
)

// ViewModel caches daemon state fed by watch streams and unary calls.
type ViewModel struct {
	mu sync.RWMutex

	client  *client.Client
	status  rpc.StatusResponse
	orders  orders.View
	notes   notifications.View
	threads map[domain.ID]chat.View
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:  c,
		threads: make(map[domain.ID]chat.View),
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) (rpc.StatusResponse, error) {
	resp, err := vm.client.Session.GetStatus(ctx, &rpc.GetStatusRequest{})
	if err != nil {
		return rpc.StatusResponse{}, err
	}
	vm.mu.Lock()
	vm.status = *resp
	vm.mu.Unlock()
	return *resp, nil
}

// Status returns the last fetched daemon status.
func (vm *ViewModel) Status() rpc.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Login signs the driver in.
func (vm *ViewModel) Login(ctx context.Context, username, password string) (domain.Identity, error) {
	resp, err := vm.client.Session.Login(ctx, &rpc.LoginRequest{Username: username, Password: password})
	if err != nil {
		return domain.Identity{}, err
	}
	return resp.Driver, nil
}

// Logout signs the driver out and drops cached views.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if _, err := vm.client.Session.Logout(ctx, &rpc.LogoutRequest{}); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.orders = orders.View{}
	vm.notes = notifications.View{}
	vm.threads = make(map[domain.ID]chat.View)
	vm.mu.Unlock()
	return nil
}

// RefreshOrders asks the daemon to fetch the order list now.
func (vm *ViewModel) RefreshOrders(ctx context.Context) error {
	view, err := vm.client.Orders.ListOrders(ctx, &rpc.ListOrdersRequest{Refresh: true})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.orders = *view
	vm.mu.Unlock()
	return nil
}

// Advance requests the next status for item. An empty result means the
// order had no action.
func (vm *ViewModel) Advance(ctx context.Context, item orders.Item) (string, error) {
	resp, err := vm.client.Orders.AdvanceOrder(ctx, &rpc.AdvanceOrderRequest{
		OrderID:    item.Order.ID,
		FromStatus: item.Order.DriverStatus,
	})
	if err != nil {
		return "", err
	}
	return resp.Next, nil
}

// Send posts text to orderID's chat.
func (vm *ViewModel) Send(ctx context.Context, orderID domain.ID, text string) error {
	_, err := vm.client.Chat.SendMessage(ctx, &rpc.SendMessageRequest{OrderID: orderID, Text: text})
	return err
}

// SetDraft stores the composer text in the daemon.
func (vm *ViewModel) SetDraft(ctx context.Context, orderID domain.ID, text string) error {
	_, err := vm.client.Chat.SetDraft(ctx, &rpc.SetDraftRequest{OrderID: orderID, Text: text})
	return err
}

// Orders returns the cached order list.
func (vm *ViewModel) Orders() orders.View {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.orders
}

// Order returns the cached order with id.
func (vm *ViewModel) Order(id domain.ID) (orders.Item, bool) {
	return vm.Orders().Find(id)
}

// Chat returns the cached chat of orderID.
func (vm *ViewModel) Chat(orderID domain.ID) chat.View {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.threads[orderID]
}

// WatchOrders streams order snapshots into the cache and fn until ctx ends.
// The open stream keeps the orders view visible to the daemon.
func (vm *ViewModel) WatchOrders(ctx context.Context, fn func(rpc.OrdersUpdate)) error {
	stream, err := vm.client.Orders.WatchOrders(ctx, &rpc.WatchOrdersRequest{})
	if err != nil {
		return err
	}
	return Receive(ctx, stream, func(u *rpc.OrdersUpdate) {
		vm.mu.Lock()
		vm.orders = u.View
		vm.mu.Unlock()
		fn(*u)
	})
}

// WatchChat streams orderID's chat into the cache and fn until ctx ends.
func (vm *ViewModel) WatchChat(ctx context.Context, orderID domain.ID, fn func(rpc.ChatUpdate)) error {
	stream, err := vm.client.Chat.WatchChat(ctx, &rpc.WatchChatRequest{OrderID: orderID})
	if err != nil {
		return err
	}
	defer func() {
		vm.mu.Lock()
		delete(vm.threads, orderID)
		vm.mu.Unlock()
	}()
	return Receive(ctx, stream, func(u *rpc.ChatUpdate) {
		vm.mu.Lock()
		vm.threads[orderID] = u.View
		vm.mu.Unlock()
		fn(*u)
	})
}

// WatchNotifications streams the notification list until ctx ends.
func (vm *ViewModel) WatchNotifications(ctx context.Context, fn func(notifications.View)) error {
	stream, err := vm.client.Notifications.WatchNotifications(ctx, &rpc.WatchNotificationsRequest{})
	if err != nil {
		return err
	}
	return Receive(ctx, stream, func(v *notifications.View) {
		vm.mu.Lock()
		vm.notes = *v
		vm.mu.Unlock()
		fn(*v)
	})
}

// WatchAlerts streams daemon alerts until ctx ends.
func (vm *ViewModel) WatchAlerts(ctx context.Context, fn func(failure.Alert)) error {
	stream, err := vm.client.Session.WatchAlerts(ctx, &rpc.WatchAlertsRequest{})
	if err != nil {
		return err
	}
	return Receive(ctx, stream, func(a *failure.Alert) { fn(*a) })
}

// Receive hands every message of stream to fn. It returns nil when the
// server ends the stream or ctx is cancelled.
func Receive[T any](ctx context.Context, stream grpc.ServerStreamingClient[T], fn func(*T)) error {
	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		fn(msg)
	}
}

// Follow runs watch until ctx ends, reopening it retry after each return.
// Errors go to onErr.
func Follow(ctx context.Context, retry time.Duration, watch func(context.Context) error, onErr func(error)) {
	for {
		if err := watch(ctx); err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
